package handler

import (
	"biasmeter/internal/bias/invoker"
)

// BackendResponse describes one model backend.
type BackendResponse struct {
	ID            string `json:"id"`
	Family        string `json:"family"`
	Model         string `json:"model"`
	Configured    bool   `json:"configured"`
	Default       bool   `json:"default"`
	FamilyDefault bool   `json:"family_default"`
	CircuitOpen   bool   `json:"circuit_open"`
}

// BackendsResponse is the HTTP response for GET /backends.
type BackendsResponse struct {
	Backends []BackendResponse `json:"backends"`
}

// FromBackends converts registry status into the response.
func FromBackends(statuses []invoker.BackendStatus) *BackendsResponse {
	out := &BackendsResponse{Backends: make([]BackendResponse, 0, len(statuses))}
	for _, st := range statuses {
		out.Backends = append(out.Backends, BackendResponse{
			ID:            st.ID,
			Family:        string(st.Family),
			Model:         st.Model,
			Configured:    st.Configured,
			Default:       st.Default,
			FamilyDefault: st.FamilyDefault,
			CircuitOpen:   st.CircuitOpen,
		})
	}
	return out
}
