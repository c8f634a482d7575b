package request

// StartRunRequest asks for a background run. An empty mode means "new".
type StartRunRequest struct {
	Mode string `json:"mode"`
}
