package autosave

// Status is the save indicator shown next to the sheet.
type Status string

// Engine statuses. Saved and error are transient and fall back to idle
// after Config.StatusDelay; neither blocks further edits.
const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

func (s Status) String() string { return string(s) }
