package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-ordering/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "restaurant", cmd.Use)

	for _, name := range []string{"serve", "migrate", "seed", "qr", "print-test"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	for _, flag := range []string{"db-driver", "db-dsn", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestQRCommandWritesPNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "table3.png")

	stdout, err := execute(t, "qr", "--short-code", "senja1", "--table", "3", "--base-url", "https://order.example.com", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "https://order.example.com/guest/SENJA1/table/3")

	png, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestQRCommandRequiresShortCode(t *testing.T) {
	_, err := execute(t, "qr", "-o", filepath.Join(t.TempDir(), "x.png"))
	assert.Error(t, err)
}

func TestMigrateAndSeed(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "restaurant.db")
	seedFile := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedFile, []byte(`
restaurants:
  - name: Warung Senja
    short_code: SENJA1
    users:
      - {username: maya, name: Maya, role: manager, password: secret123}
    menu:
      - {name: Es Teh, category: Drinks, price: 5000}
`), 0o644))

	stdout, err := execute(t, "migrate", "--db-driver", "sqlite", "--db-dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, stdout, "migrated")

	stdout, err = execute(t, "seed", "--db-driver", "sqlite", "--db-dsn", dsn, "--file", seedFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "seeded 1 restaurant(s)")

	// Seeding twice skips existing restaurants.
	_, err = execute(t, "seed", "--db-driver", "sqlite", "--db-dsn", dsn, "-f", seedFile)
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	var restaurants, users int64
	db.Model(&models.Restaurant{}).Count(&restaurants)
	db.Model(&models.User{}).Count(&users)
	assert.Equal(t, int64(1), restaurants)
	assert.Equal(t, int64(1), users)
}

func TestSeedRejectsUnknownRole(t *testing.T) {
	dir := t.TempDir()
	seedFile := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedFile, []byte(`
restaurants:
  - name: Warung Senja
    short_code: SENJA1
    users:
      - {username: x, name: X, role: waiter, password: secret123}
`), 0o644))

	_, err := execute(t, "seed", "--db-driver", "sqlite", "--db-dsn", filepath.Join(dir, "r.db"), "-f", seedFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestPrintTestCommand(t *testing.T) {
	device := filepath.Join(t.TempDir(), "lp0")
	require.NoError(t, os.WriteFile(device, nil, 0o644))

	stdout, err := execute(t, "print-test", "--device", device)
	require.NoError(t, err)
	assert.Contains(t, stdout, "test page sent")

	written, err := os.ReadFile(device)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(written, []byte("\x1b@")))
	assert.Contains(t, string(written), "TEST PAGE")

	_, err = execute(t, "print-test", "--device", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
