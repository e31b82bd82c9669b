package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ZamarianPatrick/pms/model"
	"github.com/ZamarianPatrick/pms/store"
)

var _ = Describe("pms", func() {
	var (
		dir string
		out *bytes.Buffer
	)

	execute := func(args ...string) error {
		rootCmd.SetArgs(append([]string{}, args...))
		rootCmd.SetOut(out)
		rootCmd.SetErr(io.Discard)
		return rootCmd.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	It("should require a configuration path", func() {
		Expect(execute()).NotTo(Succeed())
	})

	It("should fail for a configuration that cannot be read", func() {
		Expect(execute(filepath.Join(dir, "missing.json"))).NotTo(Succeed())
	})

	It("should fail when the adc bus cannot be opened", func() {
		cfgPath := filepath.Join(dir, "pms.json")
		Expect(os.WriteFile(cfgPath, []byte(`{"spi_port": "/dev/spidev9.9", "log_level": "error"}`), 0o644)).To(Succeed())

		err := execute(cfgPath)
		Expect(err).To(MatchError(ContainSubstring("failed to initialize sensors")))
		Expect(err).To(MatchError(ContainSubstring("/dev/spidev9.9")))
	})

	It("should fail for an unknown probe type", func() {
		cfgPath := filepath.Join(dir, "pms.json")
		Expect(os.WriteFile(cfgPath, []byte(`{"probe": {"type": "bme280"}, "log_level": "error"}`), 0o644)).To(Succeed())

		Expect(execute(cfgPath)).To(MatchError(ContainSubstring("failed to initialize sensors")))
	})

	It("should write the default configuration", func() {
		path := filepath.Join(dir, "pms.yml")
		Expect(execute("init-config", path)).To(Succeed())
		Expect(path).To(BeAnExistingFile())
		Expect(out.String()).To(ContainSubstring(path))

		Expect(execute("init-config", path)).NotTo(Succeed())
	})

	It("should print the stored readings", func() {
		dbPath := filepath.Join(dir, "garden.db")
		db := store.New(dbPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
		Expect(db.EnsureSchema()).To(Succeed())

		light, humidity := 100, 55.0
		Expect(db.Insert(model.Reading{Timestamp: 1700000000, LightIntensity: &light, AirHumidity: &humidity})).To(Succeed())

		cfgPath := filepath.Join(dir, "pms.json")
		Expect(os.WriteFile(cfgPath, []byte(fmt.Sprintf(`{"database_name": %q, "log_level": "error"}`, dbPath)), 0o644)).To(Succeed())

		Expect(execute("readings", cfgPath, "-n", "5")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("1700000000"))
		Expect(out.String()).To(ContainSubstring("100.0"))
		Expect(out.String()).To(ContainSubstring("55.0"))
	})
})
