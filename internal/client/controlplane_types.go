package client

// ControlPlaneConfig contains configuration for the control plane server.
type ControlPlaneConfig struct {
	Addr      string // bind address
	AuthToken string // access token, empty disables auth
}
