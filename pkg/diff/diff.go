// Package diff compares consecutive canonical records field by field.
package diff

import "github.com/whoiswatch/whoiswatch/pkg/model"

// Canonical reports whether cur differs from prev, with one FieldChange per
// differing tracked field, emitted in declared field order. A nil prev means
// first observation: the state is recorded but there is nothing to attribute
// a change to, so changed is true and the change list is empty.
func Canonical(prev *model.CanonicalRecord, cur model.CanonicalRecord) (bool, []model.FieldChange) {
	if prev == nil {
		return true, nil
	}

	var changes []model.FieldChange
	for _, dp := range model.Datapoints {
		from := prev.Field(dp.Key)
		to := cur.Field(dp.Key)
		if from != to {
			changes = append(changes, model.FieldChange{Label: dp.Label, From: from, To: to})
		}
	}

	return len(changes) > 0, changes
}
