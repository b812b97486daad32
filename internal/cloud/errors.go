package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/dmitrijs2005/cryptkeeper/internal/common"
)

var authErrorCodes = map[string]bool{
	"ExpiredToken":          true,
	"ExpiredTokenException": true,
	"InvalidToken":          true,
	"TokenRefreshRequired":  true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"AccessDenied":          true,
}

// classify maps an SDK error onto the remote error taxonomy. Cancellation
// of the caller's context passes through unchanged; a missing object is a
// plain common.ErrRemote.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrRemote) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if isNotFound(err) {
		// retrying will not make it appear
		return fmt.Errorf("%w: %s: not found: %v", common.ErrRemote, op, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && authErrorCodes[apiErr.ErrorCode()] {
		return fmt.Errorf("%w: %s: %v", common.ErrRemoteAuthExpired, op, err)
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s: %v", common.ErrRemoteAuthExpired, op, err)
		}
	}

	return fmt.Errorf("%w: %s: %v", common.ErrRemoteTransient, op, err)
}

// isNotFound reports whether err means the object does not exist.
func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}

	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
