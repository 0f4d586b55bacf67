package api

// ChangeLocaleRequest is the body of POST /api/v1/actions/change-locale.
type ChangeLocaleRequest struct {
	Lang string `json:"lang" binding:"required"`
}

// ConfirmRequest is the body of the logout actions.
type ConfirmRequest struct {
	Confirm bool `json:"confirm"`
}

// SendLogRequest is the body of POST /api/v1/actions/send-log.
type SendLogRequest struct {
	Message string `json:"message" binding:"required"`
	Level   string `json:"level"`
}

// OpenURLRequest is the body of POST /api/v1/actions/open-url.
type OpenURLRequest struct {
	URL      string `json:"url" binding:"required"`
	Internal bool   `json:"internal"`
}

// ConfirmationAnswer is the body of POST /api/v1/confirmations/:id.
type ConfirmationAnswer struct {
	Accepted bool `json:"accepted"`
}

// CopyTokenResponse carries the token for the client's clipboard.
type CopyTokenResponse struct {
	Token string `json:"token"`
}
