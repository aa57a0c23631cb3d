package db

import (
	"time"

	"github.com/whoiswatch/whoiswatch/pkg/model"
)

// Param is a string key/value store for app bookkeeping. Currently it only
// holds db_ver, which gates forward schema migrations.
type Param struct {
	Param string `gorm:"primaryKey;size:64"`
	Value string `gorm:"size:64"`
}

// Domain is the mutable tracking record for one watched domain. LastStateID
// points at the most recent recorded state; CurRawText and LastChecked are
// refreshed on every check whether or not a new state was recorded.
type Domain struct {
	Domain       string `gorm:"primaryKey;size:255"`
	LastStateID  *uint
	ActiveChecks bool `gorm:"default:true"`
	DoDNS        bool `gorm:"column:do_dns;default:true"`
	LastChecked  *time.Time
	CurRawText   string `gorm:"type:text"`
}

// State is one immutable point-in-time snapshot of a domain's whois/DNS
// data. Consecutive states for a domain always differ in at least one
// tracked field.
type State struct {
	ID             uint      `gorm:"primarykey"`
	Domain         string    `gorm:"size:255;uniqueIndex:idx_domain_checktime,priority:1"`
	CheckTime      time.Time `gorm:"uniqueIndex:idx_domain_checktime,priority:2"`
	RawText        string    `gorm:"type:text"`
	Registrar      string    `gorm:"size:255"`
	WhoisServer    string    `gorm:"size:255"`
	ReferralURL    string    `gorm:"size:255"`
	UpdatedDate    *time.Time
	CreationDate   *time.Time
	ExpirationDate *time.Time
	NameServers    string `gorm:"size:255"`
	Status         string `gorm:"size:255"`
	Emails         string `gorm:"size:255"`
	DNSSEC         string `gorm:"column:dnssec;size:255"`
	Name           string `gorm:"size:255"`
	Org            string `gorm:"size:255"`
	Address        string `gorm:"size:255"`
	City           string `gorm:"size:255"`
	RegState       string `gorm:"column:reg_state;size:255"`
	Zipcode        string `gorm:"size:255"`
	IP             string `gorm:"size:255"`
	MX             string `gorm:"column:mx;size:255"`
}

// ChangedField is one field-level delta explaining why its owning state was
// recorded. The initial state of a domain has no rows here.
type ChangedField struct {
	ID      uint   `gorm:"primarykey"`
	StateID uint   `gorm:"uniqueIndex:idx_state_info,priority:1"`
	State   State  `gorm:"foreignKey:StateID"`
	Info    string `gorm:"size:64;uniqueIndex:idx_state_info,priority:2"`
	ValFrom string `gorm:"size:255"`
	ValTo   string `gorm:"size:255"`
}

// Canonical rebuilds the comparable record this state was created from.
func (s *State) Canonical() model.CanonicalRecord {
	return model.CanonicalRecord{
		Registrar:      s.Registrar,
		WhoisServer:    s.WhoisServer,
		ReferralURL:    s.ReferralURL,
		UpdatedDate:    s.UpdatedDate,
		CreationDate:   s.CreationDate,
		ExpirationDate: s.ExpirationDate,
		NameServers:    s.NameServers,
		Status:         s.Status,
		Emails:         s.Emails,
		DNSSEC:         s.DNSSEC,
		Name:           s.Name,
		Org:            s.Org,
		Address:        s.Address,
		City:           s.City,
		State:          s.RegState,
		Zipcode:        s.Zipcode,
		IP:             s.IP,
		MX:             s.MX,
	}
}

func newState(domain string, checkTime time.Time, rawText string, rec model.CanonicalRecord) State {
	return State{
		Domain:         domain,
		CheckTime:      checkTime,
		RawText:        rawText,
		Registrar:      rec.Registrar,
		WhoisServer:    rec.WhoisServer,
		ReferralURL:    rec.ReferralURL,
		UpdatedDate:    rec.UpdatedDate,
		CreationDate:   rec.CreationDate,
		ExpirationDate: rec.ExpirationDate,
		NameServers:    rec.NameServers,
		Status:         rec.Status,
		Emails:         rec.Emails,
		DNSSEC:         rec.DNSSEC,
		Name:           rec.Name,
		Org:            rec.Org,
		Address:        rec.Address,
		City:           rec.City,
		RegState:       rec.State,
		Zipcode:        rec.Zipcode,
		IP:             rec.IP,
		MX:             rec.MX,
	}
}
