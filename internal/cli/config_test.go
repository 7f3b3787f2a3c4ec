package cli_test

import (
	"path/filepath"
	"testing"

	"github.com/calvinalkan/lockfile/internal/cli"
)

func Test_Print_Config_Shows_Defaults_When_No_Files(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "effective_cwd="+c.Dir)
	cli.AssertContains(t, stdout, "max_data_per_iteration=100000")
	cli.AssertContains(t, stdout, "encoding=(negotiate)")
	cli.AssertContains(t, stdout, "lock=auto")
	cli.AssertContains(t, stdout, "(defaults only)")
}

func Test_Print_Config_Shows_Sources_When_Files_Loaded(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.Env["XDG_CONFIG_HOME"] = t.TempDir()

	globalPath := filepath.Join(c.Env["XDG_CONFIG_HOME"], "lockfile", "config.json")

	c.MustRun("init-config", "--global")
	c.WriteFile(".lockfile.json", `{"sync_on_close": true}`)

	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "sync_on_close=true")
	cli.AssertContains(t, stdout, "global_config="+globalPath)
	cli.AssertContains(t, stdout, "project_config="+c.Path(".lockfile.json"))
}

func Test_Init_Config_Writes_Project_File_Once(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout := c.MustRun("init-config")
	cli.AssertContains(t, stdout, "wrote "+c.Path(".lockfile.json"))
	cli.AssertContains(t, c.ReadFile(".lockfile.json"), `"lock": "auto"`)

	cli.AssertContains(t, c.MustFail("init-config"), "already exists")
}

func Test_Init_Config_Rejects_Path_With_Global(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	cli.AssertContains(t, c.MustFail("init-config", "--global", "x.json"), "mutually exclusive")
}

func Test_Stat_Reports_Size_And_Lock(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("f", "12345")

	stdout := c.MustRun("stat", "f")

	cli.AssertContains(t, stdout, "name="+c.Path("f"))
	cli.AssertContains(t, stdout, "size=5")
	cli.AssertContains(t, stdout, "locked=")
}
