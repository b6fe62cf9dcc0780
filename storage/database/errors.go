package database

import (
	"context"
	"database/sql/driver"
	"net"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/amigodopovo/academia/core"
)

// TranslateError classifies connection level failures: unreachable store (TransientConnect)
// and rejected credentials or unknown database (Config). Other errors are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if core.KindOf(err) != core.KindUnknown {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08", pqErr.Code == "57P03":
			return &core.Error{Kind: core.KindTransientConnect, Message: err.Error(), Err: err}
		case pqErr.Code.Class() == "28", pqErr.Code == "3D000":
			return &core.Error{Kind: core.KindConfig, Message: err.Error(), Err: err}
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &core.Error{Kind: core.KindTransientConnect, Message: err.Error(), Err: err}
	}

	// lib/pq reports TLS negotiation refusals as plain errors
	if strings.HasPrefix(errors.Cause(err).Error(), "pq: SSL is not enabled") {
		return &core.Error{Kind: core.KindConfig, Message: err.Error(), Err: err}
	}
	return err
}
