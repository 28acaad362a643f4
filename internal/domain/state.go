package domain

import "time"

// ServerInfo is the server_info object of the state file.
type ServerInfo struct {
	Connections      int    `json:"connections"`
	MaxConnections   int    `json:"max_connections"`
	ServerStatePath  string `json:"server_state_path"`
	ServerConfigPath string `json:"server_config_path"`
	UDPPort          int    `json:"udp_port"`
	TCPPort          int    `json:"tcp_port"`
	DomainName       string `json:"tcp_dns"`
}

// RecordKeys holds base64-encoded key material for a host.
type RecordKeys struct {
	PublicKey string `json:"public_key"`
}

// ClientRecord is one entry of client_list, keyed by machine ID.
type ClientRecord struct {
	DisplayName  string     `json:"computer_name"`
	MachineID    string     `json:"machine_guid"`
	SessionID    uint64     `json:"client_id"`
	EnrollmentID string     `json:"enrollment_id"`
	FirstSeen    time.Time  `json:"first_seen"`
	LastSeen     time.Time  `json:"last_seen"`
	Keys         RecordKeys `json:"keys_b64"`
}

// State is the whole persisted document.
type State struct {
	ServerInfo ServerInfo              `json:"server_info"`
	ClientList map[string]ClientRecord `json:"client_list"`
}
