package main

import (
	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/pdf2jpk/internal/common"
	"github.com/joseph-ayodele/pdf2jpk/internal/entity"
)

// metaFlags binds submission metadata to command flags.
func metaFlags(fs *pflag.FlagSet, m *entity.JobMeta) {
	fs.StringVar(&m.CompanyName, "company-name", "", "filer company name (default FILER_COMPANY_NAME)")
	fs.StringVar(&m.CompanyNIP, "nip", "", "filer NIP (default FILER_NIP)")
	fs.StringVar(&m.OfficeCode, "office-code", "", "4-digit tax office code (default FILER_OFFICE_CODE)")
	fs.IntVar(&m.Purpose, "purpose", 0, "1 = filing, 2 = correction (default FILER_PURPOSE)")
	fs.StringVar(&m.Period, "period", "", "reporting period YYYY-MM (default: from the first record)")
	fs.StringVar(&m.FirstName, "first-name", "", "filer given name")
	fs.StringVar(&m.LastName, "last-name", "", "filer surname")
	fs.StringVar(&m.BirthDate, "birth-date", "", "filer birth date YYYY-MM-DD")
	fs.StringVar(&m.Email, "email", "", "filer contact email")
	fs.StringVar(&m.Phone, "phone", "", "filer contact phone")
	fs.StringVar(&m.BuyerName, "buyer-name", "", "name used for buyers whose name is not found")
}

// resolveMeta fills defaults from configuration and validates the result.
func resolveMeta(m entity.JobMeta) (entity.JobMeta, error) {
	m = cfg.Filer.Apply(m)
	if err := common.ValidateJobMeta(m); err != nil {
		return m, err
	}
	return m, nil
}
