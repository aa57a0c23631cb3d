package backend

import (
	"fmt"

	"github.com/whoiswatch/whoiswatch/pkg/db"
	"github.com/whoiswatch/whoiswatch/pkg/model"
)

func (b *backend) SetActive(name string, active bool) error {
	return b.db.SetActive(name, active)
}

func (b *backend) Purge(name string) error {
	return b.db.PurgeDomain(name)
}

func (b *backend) ListDomains() ([]model.DomainResponse, error) {
	domains, err := b.db.ListDomains()
	if err != nil {
		return nil, err
	}

	out := make([]model.DomainResponse, 0, len(domains))
	for _, d := range domains {
		out = append(out, model.DomainResponse{
			Name:         d.Domain,
			ActiveChecks: d.ActiveChecks,
			DoDNS:        d.DoDNS,
		})
	}
	return out, nil
}

// GetHistory assembles the full report for one domain: current canonical
// state plus the changed-field log grouped by state, oldest first. States
// with no changed rows (the initial observation) are omitted from the
// history section since there was nothing to attribute them to.
func (b *backend) GetHistory(name string) (model.HistoryResponse, error) {
	var resp model.HistoryResponse

	domain, err := b.db.GetDomain(name)
	if err != nil {
		return resp, err
	}
	if domain.Domain == "" {
		return resp, fmt.Errorf("%w: %s", db.ErrDomainNotFound, name)
	}

	resp.Name = domain.Domain
	resp.ActiveChecks = domain.ActiveChecks
	resp.RawText = domain.CurRawText
	if domain.LastChecked != nil {
		resp.LastChecked = domain.LastChecked.Format(model.TimeLayout)
	}

	states, err := b.db.ListStateTimes(name)
	if err != nil {
		return resp, err
	}
	if len(states) > 0 {
		resp.FirstChecked = states[0].CheckTime.Format(model.TimeLayout)
	}

	current, err := b.db.GetCurrentState(name)
	if err != nil {
		return resp, err
	}
	if current != nil {
		rec := current.Canonical()
		fields := make(map[string]string, len(model.Datapoints))
		for _, dp := range model.Datapoints {
			fields[dp.Key] = rec.Field(dp.Key)
		}
		resp.Current = fields
		resp.StateSince = current.CheckTime.Format(model.TimeLayout)
	}

	for _, st := range states {
		changes, err := b.db.ChangesForState(st.ID)
		if err != nil {
			return resp, err
		}
		if len(changes) == 0 {
			continue
		}
		entry := model.StateResponse{
			StateID:   st.ID,
			CheckTime: st.CheckTime.Format(model.TimeLayout),
		}
		for _, ch := range changes {
			entry.Changes = append(entry.Changes, model.FieldChange{
				Label: ch.Info,
				From:  ch.ValFrom,
				To:    ch.ValTo,
			})
		}
		resp.History = append(resp.History, entry)
	}

	return resp, nil
}
