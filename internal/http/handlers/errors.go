package handlers

// Stable machine-readable error codes returned in the `code` field of the
// error envelope. Codes are part of the API contract; add, never repurpose.
const (
	// CodeBadRequest indicates a malformed or semantically invalid payload.
	CodeBadRequest = "bad_request"
	// CodeMissingAuth indicates the request carried no bearer token.
	CodeMissingAuth = "missing_auth"
	// CodeInvalidToken indicates the bearer or internal token failed verification.
	CodeInvalidToken = "invalid_token"
	// CodeMissingUser indicates an authenticated route ran without a user ID.
	CodeMissingUser = "missing_user"
	// CodeNotFound indicates the referenced resource does not exist.
	CodeNotFound = "not_found"
	// CodeMethodNotAllowed indicates the route exists but not for this verb.
	CodeMethodNotAllowed = "method_not_allowed"
	// CodeRateLimited indicates the sliding-window quota was exhausted.
	CodeRateLimited = "rate_limited"
	// CodeRateLimitUnavailable indicates the limiter backend failed; the
	// request was refused rather than admitted unchecked.
	CodeRateLimitUnavailable = "rate_limit_unavailable"
	// CodeUpstreamUnavailable indicates the AI upstream could not be reached.
	CodeUpstreamUnavailable = "upstream_unavailable"
	// CodeInternalError indicates an unexpected server-side failure.
	CodeInternalError = "internal_error"
)
