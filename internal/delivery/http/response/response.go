package response

type StartRunResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Profiles int    `json:"profiles"`
	Running  bool   `json:"running"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
