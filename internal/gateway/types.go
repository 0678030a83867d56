package gateway

// Connection modes a camera can be configured with
const (
	ModeDirect = "direct"
	ModeParams = "params"
)

// apiEnvelope is the common success/message wrapper of mutating endpoints
type apiEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CameraSnapshot is the service's view of a configured camera. Exactly one
// of Source or the host parameter set is populated, per ConnectionMode.
type CameraSnapshot struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	ConnectionMode string `json:"connection_mode"`
	Source         string `json:"source,omitempty"`
	Host           string `json:"host,omitempty"`
	Port           string `json:"port,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	Channel        string `json:"channel,omitempty"`
	Path           string `json:"path,omitempty"`
	DetectionLine  int    `json:"detection_line"`
	DetectionAngle int    `json:"detection_angle"`
	MinArea        int    `json:"min_area"`
	Running        bool   `json:"running"`
	PeopleInStore  int    `json:"people_in_store"`
	EntryCount     int    `json:"entry_count"`
	ExitCount      int    `json:"exit_count"`
}

// CameraUpsert is the request body of add/edit. Password is a pointer so a
// blank edit-form password is omitted instead of clearing the stored one.
type CameraUpsert struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	ConnectionMode string  `json:"connection_mode"`
	Source         string  `json:"source,omitempty"`
	Host           string  `json:"host,omitempty"`
	Port           string  `json:"port,omitempty"`
	Username       string  `json:"username,omitempty"`
	Password       *string `json:"password,omitempty"`
	Channel        string  `json:"channel,omitempty"`
	Path           string  `json:"path,omitempty"`
	DetectionLine  int     `json:"detection_line"`
	DetectionAngle int     `json:"detection_angle"`
	MinArea        int     `json:"min_area"`
}

// ConnectionProbe is the request body of the connection test endpoint
type ConnectionProbe struct {
	Type           string `json:"type"`
	ConnectionMode string `json:"connection_mode"`
	Source         string `json:"source,omitempty"`
	Host           string `json:"host,omitempty"`
	Port           string `json:"port,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	Channel        string `json:"channel,omitempty"`
	Path           string `json:"path,omitempty"`
}

// SyncStatus reports the service's background sync to the head office.
// NextSyncTime is authoritative; countdowns are derived from the wall clock
// at render time, never decremented locally.
type SyncStatus struct {
	Running      bool  `json:"running"`
	LastSyncTime int64 `json:"last_sync_time,omitempty"`
	LastSyncOK   bool  `json:"last_sync_status,omitempty"`
	NextSyncTime int64 `json:"next_sync_time"`
}

// SystemStatus is the whole-system counter state, replaced wholesale on
// every status poll.
type SystemStatus struct {
	Running       bool        `json:"running"`
	PeopleInStore int         `json:"people_in_store"`
	EntryCount    int         `json:"entry_count"`
	ExitCount     int         `json:"exit_count"`
	Sync          *SyncStatus `json:"sync,omitempty"`
}

// StatSample is one day of aggregate visitor statistics
type StatSample struct {
	Date         string `json:"date"`
	TotalEntries int    `json:"total_entries"`
	TotalExits   int    `json:"total_exits"`
	PeakTime     string `json:"peak_time,omitempty"`
	PeakCount    int    `json:"peak_count"`
}

// Settings is the request body of the settings save passthrough
type Settings struct {
	BranchName         string `json:"branch_name"`
	BranchLocation     string `json:"branch_location"`
	CameraWidth        int    `json:"camera_width"`
	CameraHeight       int    `json:"camera_height"`
	CameraFPS          int    `json:"camera_fps"`
	DetectionAngle     int    `json:"detection_angle"`
	MinArea            int    `json:"min_area"`
	Threshold          int    `json:"threshold"`
	BlurSize           int    `json:"blur_size"`
	DirectionThreshold int    `json:"direction_threshold"`
	ServerURL          string `json:"server_url"`
	APIKey             string `json:"api_key"`
	SyncInterval       int    `json:"sync_interval"`
}
