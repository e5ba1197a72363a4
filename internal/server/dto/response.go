package dto

// --- Common Responses ---

// SuccessResponse acknowledges a write.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// Success is the response to every successful write.
var Success = &SuccessResponse{Success: true}

// --- Auth Responses ---

// LoginResponse is a response from logging in.
type LoginResponse struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// MeResponse describes the current session.
type MeResponse struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expiresAt"`
}

// --- Table Responses ---

// TablesResponse holds tables and the metadata.
type TablesResponse struct {
	Tables   []Table           `json:"tables"`
	Metadata map[string]string `json:"metadata"`
}

// TableCount is the row count of one table.
type TableCount struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// RankCount is how many rows carry a rank.
type RankCount struct {
	Rank  string `json:"rank"`
	Count int    `json:"count"`
}

// AnalyticsResponse summarizes every table.
type AnalyticsResponse struct {
	TotalTables int          `json:"totalTables"`
	TotalRows   int          `json:"totalRows"`
	EmptyNames  int          `json:"emptyNames"`
	PerTable    []TableCount `json:"perTable"`
	Ranks       []RankCount  `json:"ranks"`
}

// ValuesResponse lists distinct values of a field.
type ValuesResponse struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

// --- Import Responses ---

// ImportResponse reports an import. Preview fields are set for file uploads.
type ImportResponse struct {
	Success  bool     `json:"success"`
	Imported int      `json:"imported"`
	DryRun   bool     `json:"dryRun,omitempty"`
	Kind     string   `json:"kind,omitempty"`
	Columns  []string `json:"columns,omitempty"`
	Records  int      `json:"records,omitempty"`
	Preview  []Row    `json:"preview,omitempty"`
}

// --- Health Responses ---

// HealthResponse reports server health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
	Database  string `json:"database"`
}
