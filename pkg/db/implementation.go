package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/whoiswatch/whoiswatch/pkg/diff"
	"github.com/whoiswatch/whoiswatch/pkg/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// schemaVersion is the current db_ver. Upgrades apply sequentially from the
// stored version, never skipping a step.
const schemaVersion = 1

const paramDBVer = "db_ver"

type database struct {
	db *gorm.DB
}

// New creates a new database connection and brings the schema up to date.
func New(ctx context.Context, dialect string, dsn string, config *gorm.Config) (Database, error) {
	if config == nil {
		config = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	}

	var db *gorm.DB
	var err error

	if dialect == "sqlite" {
		db, err = gorm.Open(sqlite.Open(dsn), config)
		if err == nil {
			db.Exec("PRAGMA foreign_keys = ON")
		}
	} else if dialect == "mysql" {
		db, err = gorm.Open(mysql.Open(dsn), config)
	} else {
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}

	if err != nil {
		return nil, err
	}

	db = db.WithContext(ctx)

	d := &database{
		db: db,
	}
	if err := d.migrate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *database) migrate() error {
	if err := d.db.AutoMigrate(
		&Param{},
		&Domain{},
		&State{},
		&ChangedField{},
	); err != nil {
		return err
	}

	ver, err := d.getParamInt(paramDBVer)
	if err != nil {
		return err
	}
	if ver < 0 {
		// Fresh database
		return d.SetParam(paramDBVer, strconv.Itoa(schemaVersion))
	}

	// Sequential upgrade steps go here, each gated on ver and followed by a
	// db_ver bump. No steps exist yet beyond v1.
	if ver < schemaVersion {
		return d.SetParam(paramDBVer, strconv.Itoa(schemaVersion))
	}
	return nil
}

func (d *database) GetDomain(name string) (Domain, error) {
	domain := Domain{}
	sql := d.db.Where("domain = ?", name).Limit(1).Find(&domain)
	return domain, sql.Error
}

func (d *database) CreateDomain(name string, doDNS bool) (Domain, error) {
	domain := Domain{
		Domain:       name,
		ActiveChecks: true,
		DoDNS:        doDNS,
	}
	sql := d.db.Create(&domain)
	return domain, sql.Error
}

func (d *database) SetActive(name string, active bool) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := requireDomain(tx, name); err != nil {
			return err
		}
		sql := tx.Model(&Domain{}).Where("domain = ?", name).
			Update("active_checks", active)
		return sql.Error
	})
}

func (d *database) GetCurrentState(name string) (*State, error) {
	domain, err := d.GetDomain(name)
	if err != nil {
		return nil, err
	}
	if domain.Domain == "" || domain.LastStateID == nil {
		return nil, nil
	}

	var state State
	sql := d.db.Where("id = ?", *domain.LastStateID).Limit(1).Find(&state)
	if sql.Error != nil {
		return nil, sql.Error
	}
	return &state, nil
}

func (d *database) RecordCheck(name, rawText string, rec model.CanonicalRecord, doDNS bool, now time.Time) (bool, []model.FieldChange, error) {
	var stored bool
	var changes []model.FieldChange

	// Unique key on (domain, check_time) is at DATETIME resolution
	now = now.UTC().Truncate(time.Second)

	err := d.db.Transaction(func(tx *gorm.DB) error {
		var domain Domain
		sql := tx.Where("domain = ?", name).Limit(1).Find(&domain)
		if sql.Error != nil {
			return sql.Error
		}
		if domain.Domain == "" {
			return fmt.Errorf("%w: %s", ErrDomainNotFound, name)
		}

		var prev *model.CanonicalRecord
		if domain.LastStateID != nil {
			var state State
			sql := tx.Where("id = ?", *domain.LastStateID).Limit(1).Find(&state)
			if sql.Error != nil {
				return sql.Error
			}
			c := state.Canonical()
			prev = &c
		}

		changed, diffs := diff.Canonical(prev, rec)

		// Refreshed on every check, stored state or not
		sql = tx.Model(&Domain{}).Where("domain = ?", name).Updates(map[string]interface{}{
			"cur_raw_text": rawText,
			"last_checked": now,
			"do_dns":       doDNS,
		})
		if sql.Error != nil {
			return sql.Error
		}

		if !changed {
			return nil
		}

		state := newState(name, now, rawText, rec)
		if sql := tx.Create(&state); sql.Error != nil {
			return sql.Error
		}
		sql = tx.Model(&Domain{}).Where("domain = ?", name).
			Update("last_state_id", state.ID)
		if sql.Error != nil {
			return sql.Error
		}
		for _, ch := range diffs {
			row := ChangedField{
				StateID: state.ID,
				Info:    ch.Label,
				ValFrom: ch.From,
				ValTo:   ch.To,
			}
			if sql := tx.Create(&row); sql.Error != nil {
				return sql.Error
			}
		}

		stored = true
		changes = diffs
		return nil
	})

	if err != nil {
		return false, nil, err
	}
	return stored, changes, nil
}

func (d *database) PurgeDomain(name string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := requireDomain(tx, name); err != nil {
			return err
		}

		var stateIDs []uint
		sql := tx.Model(&State{}).Where("domain = ?", name).Pluck("id", &stateIDs)
		if sql.Error != nil {
			return sql.Error
		}

		// Deletion order respects referential integrity: changed rows,
		// then the domain's state pointer, then states, then the domain.
		if len(stateIDs) > 0 {
			if sql := tx.Where("state_id IN ?", stateIDs).Delete(&ChangedField{}); sql.Error != nil {
				return sql.Error
			}
		}
		sql = tx.Model(&Domain{}).Where("domain = ?", name).
			Update("last_state_id", nil)
		if sql.Error != nil {
			return sql.Error
		}
		if len(stateIDs) > 0 {
			if sql := tx.Where("id IN ?", stateIDs).Delete(&State{}); sql.Error != nil {
				return sql.Error
			}
		}
		sql = tx.Where("domain = ?", name).Delete(&Domain{})
		return sql.Error
	})
}

func (d *database) ListDomains() ([]Domain, error) {
	var domains []Domain
	sql := d.db.Order("domain asc").Find(&domains)
	return domains, sql.Error
}

func (d *database) ListStateTimes(name string) ([]StateTime, error) {
	var times []StateTime
	sql := d.db.Model(&State{}).
		Select("id", "check_time").
		Where("domain = ?", name).
		Order("check_time asc").
		Find(&times)
	return times, sql.Error
}

func (d *database) ChangesForState(stateID uint) ([]ChangedField, error) {
	var changes []ChangedField
	sql := d.db.Where("state_id = ?", stateID).Order("id asc").Find(&changes)
	return changes, sql.Error
}

func (d *database) GetParam(key string) (string, error) {
	param := Param{}
	sql := d.db.Where("param = ?", key).Limit(1).Find(&param)
	return param.Value, sql.Error
}

func (d *database) SetParam(key, value string) error {
	cur, err := d.GetParam(key)
	if err != nil {
		return err
	}
	if cur == "" {
		sql := d.db.Create(&Param{Param: key, Value: value})
		return sql.Error
	}
	sql := d.db.Model(&Param{}).Where("param = ?", key).Update("value", value)
	return sql.Error
}

func (d *database) Wipe() error {
	return d.db.Migrator().DropTable(
		&ChangedField{},
		&Domain{},
		&State{},
		&Param{},
	)
}

// getParamInt returns -1 when the parameter is absent.
func (d *database) getParamInt(key string) (int, error) {
	value, err := d.GetParam(key)
	if err != nil {
		return -1, err
	}
	if value == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return -1, fmt.Errorf("unknown integer value for %s: %s", key, value)
	}
	return n, nil
}

func requireDomain(tx *gorm.DB, name string) error {
	var count int64
	sql := tx.Model(&Domain{}).Where("domain = ?", name).Count(&count)
	if sql.Error != nil {
		return sql.Error
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrDomainNotFound, name)
	}
	return nil
}
