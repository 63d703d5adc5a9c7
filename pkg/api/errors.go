package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// ErrorStatus is the error code carried in API error bodies.
type ErrorStatus int16

const (
	StatusInternalFetch               ErrorStatus = -1201
	StatusInternalTimeout             ErrorStatus = -1000
	StatusInvalidParameters           ErrorStatus = 1002
	StatusInternalUnknown             ErrorStatus = 1111
	StatusConflict                    ErrorStatus = 1203
	StatusInvalidUser                 ErrorStatus = 10505
	StatusAuthorizationFailed         ErrorStatus = 10703
	StatusInvalidAuthCode1            ErrorStatus = 10710
	StatusMessageSpam                 ErrorStatus = 10908
	StatusInvalidCategory             ErrorStatus = 11000
	StatusModerated1                  ErrorStatus = 11101
	StatusModerated2                  ErrorStatus = 11103
	StatusAccountBlocked              ErrorStatus = 11400
	StatusInvalidHeader               ErrorStatus = 11701
	StatusInvalidScope                ErrorStatus = 11703
	StatusInvalidAccessToken          ErrorStatus = 11704
	StatusRateLimitExceeded           ErrorStatus = 11706
	StatusMissingChatPermission       ErrorStatus = 11707
	StatusInvalidShardValue           ErrorStatus = 11708
	StatusMissingShardTokenPermission ErrorStatus = 11709
	StatusInvalidAuthCode2            ErrorStatus = 11710
	StatusUsedAuthCode                ErrorStatus = 11711
	StatusRefreshTokenExpired         ErrorStatus = 11712
	StatusInvalidRefreshToken         ErrorStatus = 11713
	StatusAccessTokenExpired          ErrorStatus = 11714
	StatusInvalidGrantType            ErrorStatus = 11715
	StatusInvalidRedirectURI          ErrorStatus = 11716
	StatusInvalidClientSecret         ErrorStatus = 11717
	StatusAccessTokenLimit            ErrorStatus = 11718
	StatusUnauthorizedScope           ErrorStatus = 11730
	StatusBannedInChannel             ErrorStatus = 12400
	StatusSlowMode                    ErrorStatus = 12401
	StatusFollowerOnly                ErrorStatus = 12402
	StatusUnauthorizedHyperlink       ErrorStatus = 12905
	StatusModeratedMessage            ErrorStatus = 12906
	StatusUnknown                     ErrorStatus = 20000
)

var statusNames = map[ErrorStatus]string{
	StatusInternalFetch:               "InternalFetch",
	StatusInternalTimeout:             "InternalTimeout",
	StatusInvalidParameters:           "InvalidParameters",
	StatusInternalUnknown:             "InternalUnknown",
	StatusConflict:                    "Conflict",
	StatusInvalidUser:                 "InvalidUser",
	StatusAuthorizationFailed:         "AuthorizationFailed",
	StatusInvalidAuthCode1:            "InvalidAuthCode",
	StatusMessageSpam:                 "MessageSpam",
	StatusInvalidCategory:             "InvalidCategory",
	StatusModerated1:                  "Moderated",
	StatusModerated2:                  "Moderated",
	StatusAccountBlocked:              "AccountBlocked",
	StatusInvalidHeader:               "InvalidHeader",
	StatusInvalidScope:                "InvalidScope",
	StatusInvalidAccessToken:          "InvalidAccessToken",
	StatusRateLimitExceeded:           "RateLimitExceeded",
	StatusMissingChatPermission:       "MissingChatPermission",
	StatusInvalidShardValue:           "InvalidShardValue",
	StatusMissingShardTokenPermission: "MissingShardTokenPermission",
	StatusInvalidAuthCode2:            "InvalidAuthCode",
	StatusUsedAuthCode:                "UsedAuthCode",
	StatusRefreshTokenExpired:         "RefreshTokenExpired",
	StatusInvalidRefreshToken:         "InvalidRefreshToken",
	StatusAccessTokenExpired:          "AccessTokenExpired",
	StatusInvalidGrantType:            "InvalidGrantType",
	StatusInvalidRedirectURI:          "InvalidRedirectURI",
	StatusInvalidClientSecret:         "InvalidClientSecret",
	StatusAccessTokenLimit:            "AccessTokenLimit",
	StatusUnauthorizedScope:           "UnauthorizedScope",
	StatusBannedInChannel:             "BannedInChannel",
	StatusSlowMode:                    "SlowMode",
	StatusFollowerOnly:                "FollowerOnly",
	StatusUnauthorizedHyperlink:       "UnauthorizedHyperlink",
	StatusModeratedMessage:            "ModeratedMessage",
	StatusUnknown:                     "Unknown",
}

func (s ErrorStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "ErrorStatus(" + strconv.Itoa(int(s)) + ")"
}

// APIError is the error body returned by the API.
type APIError struct {
	Status  ErrorStatus `json:"status"`
	Message string      `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bad request (%s): %s", e.Status, e.Message)
}

// Is matches another *APIError with the same status.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Status == e.Status
}

// RefreshError is returned when an access token could not be refreshed.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "failed to refresh token: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// canHandleCode reports whether the API is known to send an APIError body
// with the status code.
func canHandleCode(code int) bool {
	return code == http.StatusBadRequest ||
		code == http.StatusUnauthorized ||
		code == http.StatusInternalServerError
}

func decodeAPIError(body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Status == 0 {
		return &APIError{Status: StatusUnknown, Message: "Unknown or uncategorized error"}
	}
	return apiErr
}
