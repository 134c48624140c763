package crm

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/pam/artefact"
	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/owner"
)

// Fixture is a YAML snapshot of record-store content used to seed a local database.
type Fixture struct {
	Users     []FixtureUser     `yaml:"users"`
	Teams     []FixtureTeam     `yaml:"teams"`
	Artefacts []FixtureArtefact `yaml:"artefacts"`
}

type FixtureUser struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Email      string   `yaml:"email,omitempty"`
	Disabled   bool     `yaml:"disabled,omitempty"`
	AccessMode int      `yaml:"access_mode,omitempty"`
	Roles      []string `yaml:"roles,omitempty"`
}

type FixtureTeam struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type int    `yaml:"type,omitempty"`
}

type FixtureArtefact struct {
	ID          string            `yaml:"id"`
	Type        artefact.Type     `yaml:"type"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	OwnerID     string            `yaml:"owner"`
	OwnerKind   owner.Kind        `yaml:"owner_kind"`
	Payload     map[string]string `yaml:"payload,omitempty"`
}

// ImportStats counts rows written by Import.
type ImportStats struct {
	Users     int
	Teams     int
	Roles     int
	Artefacts int
}

func (s ImportStats) String() string {
	return fmt.Sprintf("%d users, %d teams, %d role assignments, %d artefacts", s.Users, s.Teams, s.Roles, s.Artefacts)
}

// LoadFixture reads and decodes a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read fixture %s", path)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parse fixture %s", path)
	}
	return &f, nil
}

// Import writes f into db in a single transaction. Existing rows with the same id
// are replaced.
func Import(ctx context.Context, db *sql.DB, f *Fixture) (ImportStats, error) {
	var stats ImportStats
	if err := f.validate(); err != nil {
		return stats, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return stats, errors.Wrap(err, "begin import")
	}
	defer tx.Rollback()

	for _, u := range f.Users {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO systemuser (systemuserid, fullname, internalemailaddress, isdisabled, accessmode) VALUES (?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, u.Disabled, u.AccessMode); err != nil {
			return stats, errors.Wrapf(err, "import user %s", u.ID)
		}
		stats.Users++
		for i, role := range u.Roles {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO systemuserroles (systemuserroleid, systemuserid, roleid) VALUES (?, ?, ?)`,
				fmt.Sprintf("%s:%d", u.ID, i), u.ID, role); err != nil {
				return stats, errors.Wrapf(err, "import role %s for %s", role, u.ID)
			}
			stats.Roles++
		}
	}

	for _, t := range f.Teams {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO team (teamid, name, teamtype) VALUES (?, ?, ?)`,
			t.ID, t.Name, t.Type); err != nil {
			return stats, errors.Wrapf(err, "import team %s", t.ID)
		}
		stats.Teams++
	}

	for _, a := range f.Artefacts {
		if err := insertArtefact(ctx, tx, a); err != nil {
			return stats, err
		}
		stats.Artefacts++
	}

	if err := tx.Commit(); err != nil {
		return stats, errors.Wrap(err, "commit import")
	}
	return stats, nil
}

func insertArtefact(ctx context.Context, tx *sql.Tx, a FixtureArtefact) error {
	s, _ := SchemaFor(a.Type)

	columns := []string{s.IDColumn, s.NameColumn, s.DescriptionColumn, ownerIDColumn, ownerTypeColumn}
	args := []interface{}{a.ID, a.Name, a.Description, a.OwnerID, a.OwnerKind.LogicalName()}
	for _, col := range s.PayloadColumns {
		if v, ok := a.Payload[col]; ok {
			columns = append(columns, col)
			args = append(args, v)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", s.Entity, strings.Join(columns, ", "), placeholders)
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrapf(err, "import %s %s", s.Entity, a.ID)
	}
	return nil
}

func (f *Fixture) validate() error {
	for _, a := range f.Artefacts {
		s, ok := SchemaFor(a.Type)
		if !ok {
			return errors.Wrapf(&artefact.UnknownTypeError{TypeID: string(a.Type)}, "fixture artefact %s", a.ID)
		}
		if a.ID == "" || a.OwnerID == "" {
			return errors.NewInvalidRequestError("fixture artefact %q needs id and owner", a.Name)
		}
		if a.OwnerKind != owner.KindUser && a.OwnerKind != owner.KindTeam {
			return errors.NewInvalidRequestError("fixture artefact %s has no owner_kind", a.ID)
		}
		for col := range a.Payload {
			if !slices.Contains(s.PayloadColumns, col) {
				err := errors.NewInvalidRequestError("fixture artefact %s: unknown payload column %q", a.ID, col)
				return errors.WithHintf(err, "%s accepts %s", s.Entity, strings.Join(s.PayloadColumns, ", "))
			}
		}
	}
	return nil
}
