package entity

import (
	"time"

	"github.com/joseph-ayodele/pdf2jpk/constants"
)

// JobMeta is the submitter and filer metadata attached to a job.
type JobMeta struct {
	CompanyName string `json:"company_name"`
	CompanyNIP  string `json:"company_nip"`
	OfficeCode  string `json:"office_code"`
	Purpose     int    `json:"purpose,omitempty"`
	Period      string `json:"period,omitempty"` // YYYY-MM, optional override

	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`

	// BuyerName is used for rows whose counterparty name is unknown.
	BuyerName string `json:"buyer_name,omitempty"`
}

// JobFile is one input file copied into the job directory.
type JobFile struct {
	OriginalName string `json:"original_name"`
	StoredName   string `json:"stored_name"`
	Extension    string `json:"extension"`
	SHA256       string `json:"sha256,omitempty"`
	Size         int64  `json:"size,omitempty"`
}

// JobDescriptor is the persisted state of one unit of asynchronous work.
type JobDescriptor struct {
	ID             string              `json:"id"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Status         constants.JobStatus `json:"status"`
	Meta           JobMeta             `json:"meta"`
	Files          []JobFile           `json:"files"`
	ResultFile     string              `json:"result_file,omitempty"`
	ReportFile     string              `json:"report_file,omitempty"`
	DiagnosticFile string              `json:"diagnostic_file,omitempty"`
	RecordCount    int                 `json:"record_count,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// SubmittedFile is a readable input offered to the job store on submission.
type SubmittedFile struct {
	Path         string
	OriginalName string
}
