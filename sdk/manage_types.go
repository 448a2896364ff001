package auralis

// Project is one workspace on the Auralis platform.
type Project struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Company   string `json:"company,omitempty"`
}

// ProjectList is the response to listing projects.
type ProjectList struct {
	Projects []Project `json:"projects"`
}

// ProjectUpdate carries mutable project fields.
type ProjectUpdate struct {
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
}

// MessageResponse is the generic acknowledgment body for mutations.
type MessageResponse struct {
	Message string `json:"message"`
}

// Key is an API key scoped to a project. The secret is only present in
// the creation response.
type Key struct {
	APIKeyID       string   `json:"api_key_id"`
	Key            string   `json:"key,omitempty"`
	Comment        string   `json:"comment,omitempty"`
	Scopes         []string `json:"scopes"`
	Created        string   `json:"created,omitempty"`
	ExpirationDate string   `json:"expiration_date,omitempty"`
}

// KeyList is the response to listing a project's keys.
type KeyList struct {
	APIKeys []KeyMembership `json:"api_keys"`
}

// KeyMembership pairs a key with the member it belongs to.
type KeyMembership struct {
	Member Member `json:"member"`
	APIKey Key    `json:"api_key"`
}

// KeyCreate describes a key to create. Exactly one of ExpirationDate or
// TimeToLiveSeconds may be set.
type KeyCreate struct {
	Comment           string   `json:"comment"`
	Scopes            []string `json:"scopes"`
	ExpirationDate    string   `json:"expiration_date,omitempty"`
	TimeToLiveSeconds int      `json:"time_to_live_in_seconds,omitempty"`
	Tags              []string `json:"tags,omitempty"`
}

// Member is a person with access to a project.
type Member struct {
	MemberID  string   `json:"member_id"`
	Email     string   `json:"email,omitempty"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
}

// MemberList is the response to listing project members.
type MemberList struct {
	Members []Member `json:"members"`
}

// ScopeList is a member's scopes within a project.
type ScopeList struct {
	Scopes []string `json:"scopes"`
}

// ScopeUpdate sets a member's scope within a project.
type ScopeUpdate struct {
	Scope string `json:"scope"`
}

// Invitation invites an email address into a project.
type Invitation struct {
	Email string `json:"email"`
	Scope string `json:"scope"`
}

// InvitationList is the response to listing pending invitations.
type InvitationList struct {
	Invites []Invitation `json:"invites"`
}

// UsageRequestsOptions filters the usage request log.
type UsageRequestsOptions struct {
	Start  string `url:"start,omitempty"`
	End    string `url:"end,omitempty"`
	Page   int    `url:"page,omitempty"`
	Limit  int    `url:"limit,omitempty"`
	Status string `url:"status,omitempty"`
}

// UsageRequest is one logged transcription request.
type UsageRequest struct {
	RequestID string  `json:"request_id"`
	Created   string  `json:"created,omitempty"`
	Path      string  `json:"path,omitempty"`
	APIKeyID  string  `json:"api_key_id,omitempty"`
	Response  any     `json:"response,omitempty"`
	Callback  *string `json:"callback,omitempty"`
}

// UsageRequestList is a page of the usage request log.
type UsageRequestList struct {
	Page     int            `json:"page"`
	Limit    int            `json:"limit"`
	Requests []UsageRequest `json:"requests"`
}

// UsageSummaryOptions filters the aggregated usage summary.
type UsageSummaryOptions struct {
	Start  string   `url:"start,omitempty"`
	End    string   `url:"end,omitempty"`
	Model  string   `url:"model,omitempty"`
	Method string   `url:"method,omitempty"`
	Tags   []string `url:"tag,omitempty"`
}

// UsageSummary aggregates usage over a period.
type UsageSummary struct {
	Start      string               `json:"start"`
	End        string               `json:"end"`
	Resolution UsageResolution      `json:"resolution"`
	Results    []UsageSummaryResult `json:"results"`
}

// UsageResolution describes the bucketing of a usage summary.
type UsageResolution struct {
	Units  string `json:"units"`
	Amount int    `json:"amount"`
}

// UsageSummaryResult is one bucket of aggregated usage.
type UsageSummaryResult struct {
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Hours    float64 `json:"hours"`
	Requests int     `json:"requests"`
}

// UsageFieldsOptions filters the usage fields listing.
type UsageFieldsOptions struct {
	Start string `url:"start,omitempty"`
	End   string `url:"end,omitempty"`
}

// UsageFields enumerates the distinct models, methods and tags seen in a
// project's usage over a period.
type UsageFields struct {
	Models            []UsageModel `json:"models,omitempty"`
	ProcessingMethods []string     `json:"processing_methods,omitempty"`
	Languages         []string     `json:"languages,omitempty"`
	Features          []string     `json:"features,omitempty"`
	Tags              []string     `json:"tags,omitempty"`
}

// UsageModel identifies a model referenced by usage records.
type UsageModel struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
	Version  string `json:"version,omitempty"`
	ModelID  string `json:"model_id"`
}

// Balance is one credit balance on a project.
type Balance struct {
	BalanceID       string  `json:"balance_id"`
	Amount          float64 `json:"amount"`
	Units           string  `json:"units"`
	PurchaseOrderID string  `json:"purchase_order_id,omitempty"`
}

// BalanceList is the response to listing a project's balances.
type BalanceList struct {
	Balances []Balance `json:"balances"`
}
