package errcode

import "fmt"

var (
	ErrIllegalArgument     = NewError(400, "illegal argument")
	ErrUnAuthorized        = NewError(401, "unauthorized")
	ErrTokenExpired        = NewError(402, "token expired")
	ErrServerInternalError = NewError(500, "server internal error")
)

// friend requests
var (
	ErrCreateExistingFriendRequest       = NewError(61001, "a friend request to the recipient already exists")
	ErrBlockedUserSendFriendRequest      = NewError(61002, "the recipient has blocked the requester")
	ErrRecallingFriendRequestDisabled    = NewError(61003, "recalling friend requests is disabled")
	ErrNotSenderToRecallFriendRequest    = NewError(61004, "not the sender of the friend request")
	ErrRecallNonPendingFriendRequest     = NewError(61005, "the friend request is not pending")
	ErrNotRecipientToUpdateFriendRequest = NewError(61006, "not the recipient of the friend request")
	ErrUpdateNonPendingFriendRequest     = NewError(61007, "the friend request is not pending")
)

// incremental sync
var (
	ErrAlreadyUpToDate = NewError(62001, "already up to date")
	ErrNoContent       = NewError(62002, "no content")
)

// blocklist
var (
	ErrClientBlocked = NewError(63001, "the client is blocked")
)

var codeMap = make(map[int]*Error)

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("code: %d, message: %v, detail: %v", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("code: %d, message: %v", e.Code, e.Message)
}

// Is makes copies carrying detail match their base code with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetail returns a copy of e carrying free-form detail. The base error
// values registered in codeMap are never mutated.
func (e *Error) WithDetail(format string, args ...interface{}) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Detail:  fmt.Sprintf(format, args...),
	}
}

func NewError(code int, message string) *Error {
	if _, ok := codeMap[code]; ok {
		panic("code has defined")
	}
	e := &Error{Code: code, Message: message}
	codeMap[e.Code] = e
	return e
}
