package httpapi

import (
	"errors"

	"github.com/R3E-Network/envsensor-gateway/internal/adminauth"
	"github.com/R3E-Network/envsensor-gateway/internal/apierr"
	"github.com/R3E-Network/envsensor-gateway/internal/config"
	"github.com/R3E-Network/envsensor-gateway/internal/credential"
	"github.com/R3E-Network/envsensor-gateway/internal/cursor"
	"github.com/R3E-Network/envsensor-gateway/internal/ingest"
	"github.com/R3E-Network/envsensor-gateway/internal/query"
	"github.com/R3E-Network/envsensor-gateway/internal/storage"
)

// mapError is the single terminal mapper named in spec §7: every domain
// error produced by a handler's collaborators passes through here exactly
// once before being written to the response.
func mapError(err error) *apierr.Error {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, config.ErrConfigMissing):
		return apierr.InternalError()

	case errors.Is(err, credential.ErrMissingKey):
		return apierr.MissingAPIKey()
	case errors.Is(err, credential.ErrInvalidKey):
		return apierr.InvalidAPIKey()
	case errors.Is(err, credential.ErrKeyRevoked):
		return apierr.KeyRevoked()
	case errors.Is(err, credential.ErrNotFound):
		return apierr.APIKeyNotFound()

	case errors.Is(err, adminauth.ErrMissingToken):
		return apierr.MissingToken()
	case errors.Is(err, adminauth.ErrMalformedHeader):
		return apierr.Unauthorized()
	case errors.Is(err, adminauth.ErrInvalidToken):
		return apierr.InvalidToken()

	case errors.Is(err, ingest.ErrBatchTooLarge):
		return apierr.BatchSizeExceeded()
	case errors.Is(err, ingest.ErrInvalidMAC):
		return apierr.InvalidMAC()
	case errors.Is(err, ingest.ErrInvalidTS):
		return apierr.InvalidTimestamp()
	case errors.Is(err, ingest.ErrInvalidBatchID):
		return apierr.InvalidBatchID()

	case errors.Is(err, query.ErrDeviceNotFound):
		return apierr.DeviceNotFound()
	case errors.Is(err, query.ErrNoReadings):
		return apierr.NoReadings()
	case errors.Is(err, query.ErrInvalidCursor), errors.Is(err, cursor.ErrInvalidCursor):
		return apierr.InvalidFormat("invalid cursor")

	case errors.Is(err, storage.ErrNotFound):
		return apierr.DeviceNotFound()
	case errors.Is(err, storage.ErrPreconditionFailed):
		return apierr.DatabaseError()
	case errors.Is(err, storage.ErrTransient):
		return apierr.DatabaseError()

	default:
		return apierr.InternalError()
	}
}
