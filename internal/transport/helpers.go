package transport

import (
	"errors"
	"io"

	"github.com/UnendingLoop/FaceSwap/internal/model"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500),
		errors.Is(err, model.ErrDecode):
		return 500
	case errors.Is(err, model.ErrFileNotFound):
		return 404
	case errors.Is(err, model.ErrPayloadTooLarge):
		return 413
	case errors.Is(err, model.ErrRemoteTimeout):
		return 504
	case errors.Is(err, model.ErrRemoteSubmit),
		errors.Is(err, model.ErrRemoteStatus):
		return 502
	case errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrIncorrectForm),
		errors.Is(err, model.ErrMissingImage),
		errors.Is(err, model.ErrInvalidFileType),
		errors.Is(err, model.ErrUnreachable):
		return 400
	default:
		return 500
	}
}

// clientMessage hides internal details behind the generic 500 text
func clientMessage(err error) string {
	if err == nil || errors.Is(err, model.ErrCommon500) || errorCodeDefiner(err) == 500 && !errors.Is(err, model.ErrDecode) {
		return model.ErrCommon500.Error()
	}
	return err.Error()
}

func respondError(ctx *ginext.Context, err error) {
	ctx.JSON(errorCodeDefiner(err), map[string]string{"status": statusError, "message": clientMessage(err)})
}

func closeFileFlow(res io.Closer) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		zlog.Logger.Warn().Err(err).Msg("Handler failed to close fileflow")
	}
}
