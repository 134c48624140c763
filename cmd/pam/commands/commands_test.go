package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/pam/artefact"
	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
	"github.com/teranos/pam/migration"
	"github.com/teranos/pam/owner"
	"github.com/teranos/pam/settings"
	"github.com/teranos/pam/version"
)

func TestMain(m *testing.M) {
	pterm.DisableColor()
	os.Exit(m.Run())
}

// setup isolates HOME, the working directory and the database, then imports the
// shared organisation fixture.
func setup(t *testing.T) string {
	t.Helper()
	fixture, err := filepath.Abs(filepath.Join("..", "..", "..", "crm", "testdata", "org.yaml"))
	require.NoError(t, err)

	work := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(work)
	t.Setenv("PAM_DATABASE_PATH", filepath.Join(work, "data", "pam.db"))
	settings.Reset()
	t.Cleanup(settings.Reset)

	out, err := execute(t, "db", "import", fixture)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 4 users, 2 teams, 5 role assignments, 4 artefacts")
	return work
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func listArtefacts(t *testing.T, typeID, ownerID string) []artefact.Artefact {
	t.Helper()
	out, err := execute(t, "artefacts", "ls", "--type", typeID, "--owner", ownerID, "-o", "json")
	require.NoError(t, err, out)
	var list []artefact.Artefact
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	return list
}

func ids(list []artefact.Artefact) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func TestRootTagsCommandComponent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	settings.Reset()
	t.Cleanup(settings.Reset)

	var fields []interface{}
	root := NewRootCmd()
	root.AddCommand(&cobra.Command{
		Use: "noop",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields = logger.FieldsFromContext(cmd.Context())
			return nil
		},
	})
	root.SetArgs([]string{"noop"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, []interface{}{logger.FieldComponent, "cli.noop"}, fields)
}

func TestOwners(t *testing.T) {
	setup(t)

	t.Run("table lists users then teams", func(t *testing.T) {
		out, err := execute(t, "owners", "ls")
		require.NoError(t, err)
		ana := strings.Index(out, "Ana Lima")
		ben := strings.Index(out, "Ben Okafor")
		emea := strings.Index(out, "EMEA Sales")
		require.True(t, ana >= 0 && ben >= 0 && emea >= 0, out)
		assert.Less(t, ana, ben)
		assert.Less(t, ben, emea)
		assert.NotContains(t, out, "Former Employee")
		assert.NotContains(t, out, "Integration Account")
		assert.NotContains(t, out, "Case Access")
	})

	t.Run("kind filter and json", func(t *testing.T) {
		out, err := execute(t, "owners", "ls", "--kind", "team", "-o", "json")
		require.NoError(t, err)
		var owners []owner.Owner
		require.NoError(t, json.Unmarshal([]byte(out), &owners))
		assert.Equal(t, []owner.Owner{{ID: "t-emea", Name: "EMEA Sales", Kind: owner.KindTeam}}, owners)
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "owners", "ls", "--kind", "user", "-o", "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "name: Ana Lima")
		assert.Contains(t, out, "kind: user")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := execute(t, "owners", "ls", "--kind", "robot")
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	})
}

func TestArtefacts(t *testing.T) {
	setup(t)

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, "artefacts", "ls", "--type", "userform", "--owner", "u-ana")
		require.NoError(t, err)
		assert.Contains(t, out, "Personal Dashboards of Ana Lima")
		assert.Contains(t, out, "Weekly numbers")
		assert.Contains(t, out, "Pipeline by stage")
	})

	t.Run("ordered by name", func(t *testing.T) {
		assert.Equal(t, []string{"v-2", "v-1"}, ids(listArtefacts(t, "userquery", "u-ana")))
	})

	t.Run("team owner", func(t *testing.T) {
		list := listArtefacts(t, "userqueryvisualization", "t-emea")
		require.Len(t, list, 1)
		assert.Equal(t, owner.KindTeam, list[0].OwnerKind)
	})

	t.Run("nothing owned", func(t *testing.T) {
		out, err := execute(t, "artefacts", "ls", "--type", "userquery", "--owner", "u-ben", "-o", "json")
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, out)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := execute(t, "artefacts", "ls", "--type", "savedquery", "--owner", "u-ana")
		assert.True(t, errors.Is(err, errors.ErrUnknownArtefactType))
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, err := execute(t, "artefacts", "ls", "--type", "userquery", "--owner", "u-old")
		assert.True(t, errors.IsNotFoundError(err), "disabled users are not in the directory")
	})
}

func TestMigrate_Assign(t *testing.T) {
	setup(t)

	out, err := execute(t, "migrate", "--op", "assign", "--type", "userquery",
		"--source", "u-ana", "--all", "--target", "u-ben")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Processing 2 artefacts")
	assert.Contains(t, out, "[ 50%]")
	assert.Contains(t, out, "Processed 2 artefacts")

	assert.Empty(t, listArtefacts(t, "userquery", "u-ana"))
	assert.Equal(t, []string{"v-2", "v-1"}, ids(listArtefacts(t, "userquery", "u-ben")))

	out, err = execute(t, "runs", "ls", "-o", "json")
	require.NoError(t, err)
	var runs []migration.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, migration.RunCompleted, runs[0].Status)
	assert.Equal(t, 100, runs[0].Percent)
	assert.Equal(t, 2, runs[0].UnitsCompleted)

	out, err = execute(t, "runs", "show", runs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "status: completed")
	assert.Contains(t, out, "source_owner_id: u-ana")

	_, err = execute(t, "runs", "show", "missing")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestMigrate_DuplicateJSON(t *testing.T) {
	setup(t)

	out, err := execute(t, "--json", "migrate", "--op", "duplicate", "--type", "userform",
		"--source", "u-ana", "--artefact", "d-1", "--target", "u-ben", "--target", "t-emea")
	require.NoError(t, err, out)

	var events []jsonEvent
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var ev jsonEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev), sc.Text())
		events = append(events, ev)
	}
	require.Len(t, events, 4)
	assert.Equal(t, migration.EventStarted, events[0].Kind)
	assert.Equal(t, "Processing 2 artefacts", events[0].Message)
	assert.Equal(t, 50, events[1].Percent)
	assert.Contains(t, events[1].Unit, "-> Ben Okafor")
	assert.Contains(t, events[2].Unit, "-> EMEA Sales")
	assert.Equal(t, migration.EventCompleted, events[3].Kind)
	assert.Equal(t, 100, events[3].Percent)

	assert.Equal(t, []string{"d-1"}, ids(listArtefacts(t, "userform", "u-ana")), "source keeps the original")
	copies := listArtefacts(t, "userform", "u-ben")
	require.Len(t, copies, 1)
	assert.Equal(t, "Weekly numbers", copies[0].Name)
	assert.NotEqual(t, "d-1", copies[0].ID)
	assert.Len(t, listArtefacts(t, "userform", "t-emea"), 1)
}

func TestMigrate_Delete(t *testing.T) {
	setup(t)

	out, err := execute(t, "migrate", "--op", "DELETE", "--type", "userquery",
		"--source", "u-ana", "--artefact", "v-1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Deleting 1 artefacts")
	assert.Contains(t, out, "Deleted 1 artefacts")
	assert.Equal(t, []string{"v-2"}, ids(listArtefacts(t, "userquery", "u-ana")))
}

func TestMigrate_DryRun(t *testing.T) {
	setup(t)

	out, err := execute(t, "migrate", "--op", "assign", "--type", "userquery",
		"--source", "u-ana", "--all", "--target", "u-ben", "--target", "t-emea", "--dry-run")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Assign plan, 4 units:")
	assert.Contains(t, out, "1. assign Accounts without contact (v-2) -> Ben Okafor")
	assert.Contains(t, out, "4. assign My pipeline (v-1) -> EMEA Sales")

	assert.Len(t, listArtefacts(t, "userquery", "u-ana"), 2, "dry run changes nothing")
	out, err = execute(t, "runs", "ls", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestMigrate_Rejected(t *testing.T) {
	setup(t)

	tests := []struct {
		name string
		args []string
		is   func(error) bool
	}{
		{
			name: "unknown operation",
			args: []string{"--op", "move", "--type", "userquery", "--source", "u-ana", "--all"},
			is:   func(err error) bool { return errors.Is(err, errors.ErrInvalidRequest) },
		},
		{
			name: "assign without targets",
			args: []string{"--op", "assign", "--type", "userquery", "--source", "u-ana", "--all"},
			is:   func(err error) bool { return errors.Is(err, errors.ErrInvalidRequest) },
		},
		{
			name: "nothing selected",
			args: []string{"--op", "delete", "--type", "userquery", "--source", "u-ana"},
			is:   func(err error) bool { return errors.Is(err, errors.ErrInvalidRequest) },
		},
		{
			name: "artefact not owned by source",
			args: []string{"--op", "delete", "--type", "userquery", "--source", "u-ben", "--artefact", "v-1"},
			is:   errors.IsNotFoundError,
		},
		{
			name: "unknown target",
			args: []string{"--op", "assign", "--type", "userquery", "--source", "u-ana", "--all", "--target", "t-access"},
			is:   errors.IsNotFoundError,
		},
		{
			name: "unknown type",
			args: []string{"--op", "delete", "--type", "report", "--source", "u-ana", "--all"},
			is:   func(err error) bool { return errors.Is(err, errors.ErrUnknownArtefactType) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"migrate"}, tt.args...)...)
			require.Error(t, err)
			assert.True(t, tt.is(err), "unexpected error: %v", err)
		})
	}

	assert.Len(t, listArtefacts(t, "userquery", "u-ana"), 2)
}

func TestConfig(t *testing.T) {
	setup(t)

	out, err := execute(t, "config", "use-org", "https://contoso.crm.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Organization set to https://contoso.crm.example.com")

	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[session]")
	assert.Contains(t, out, "https://contoso.crm.example.com")

	out, err = execute(t, "config", "show", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "progress_mode: step")

	out, err = execute(t, "config", "sources", "-o", "json")
	require.NoError(t, err)
	var sources []settings.SettingInfo
	require.NoError(t, json.Unmarshal([]byte(out), &sources))
	bySource := make(map[string]settings.ConfigSource)
	for _, s := range sources {
		bySource[s.Key] = s.Source
	}
	assert.Equal(t, settings.SourceSession, bySource["session.last_used_organization_url"])
	assert.Equal(t, settings.SourceEnvironment, bySource["database.path"])
	assert.Equal(t, settings.SourceDefault, bySource["migration.concurrency"])

	out, err = execute(t, "migrate", "--op", "delete", "--type", "userquery",
		"--source", "u-ana", "--artefact", "v-1", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Organization: https://contoso.crm.example.com")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)
	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestDbMigrate(t *testing.T) {
	work := setup(t)

	out, err := execute(t, "db", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "is up to date", "import already migrated the schema")

	t.Setenv("PAM_DATABASE_PATH", filepath.Join(work, "fresh.db"))
	settings.Reset()
	out, err = execute(t, "db", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 000_create_schema_migrations.sql")
	assert.Contains(t, out, "Applied 002_create_migration_runs.sql")
}
