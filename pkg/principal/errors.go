package principal

import "errors"

var (
	ErrNoPrincipal     = errors.New("principal: no authenticated principal")
	ErrNoTokenSource   = errors.New("principal: token source is not configured")
	ErrEmptyToken      = errors.New("principal: token is empty")
	ErrMalformedToken  = errors.New("principal: malformed token")
	ErrMissingSubject  = errors.New("principal: token has no subject claim")
	ErrTokenFileAccess = errors.New("principal: failed to read token file")
)
