package flowio

import "time"

type (
	ProxyRequest struct {
		Host    string        `json:"host"`
		Timeout time.Duration `json:"timeout"`
	}

	ProxyResponse struct {
		Host    string `json:"host"`
		Success bool   `json:"success"`
		Reason  string `json:"reason,omitempty"`
	}

	NodeInfo struct {
		ID     string    `json:"id"`
		Name   string    `json:"name"`
		OS     string    `json:"os"`
		Uptime time.Time `json:"uptime"`
	}

	StatusInfo struct {
		Node     *NodeInfo `json:"node"`
		Sessions int       `json:"sessions"`
		Version  string    `json:"version"`
	}

	SessionInfo struct {
		ID         string    `json:"id"`
		Host       string    `json:"host"`
		OpenedTime time.Time `json:"opened_time"`
	}
)
