package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"playerctld/internal/config"
)

var _ = Describe("Load", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "playerctld-config-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	It("falls back to documented defaults with no config file", func() {
		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.ConnectionTimeout).To(Equal(60 * time.Second))
		Expect(cfg.MaxConnections).To(Equal(10))
		Expect(cfg.MaxCommandListSize).To(Equal(2048 * 1024))
		Expect(cfg.MaxOutputBufferSize).To(Equal(8192 * 1024))
		Expect(cfg.Bind).To(Equal([]string{"tcp://127.0.0.1:6600"}))
		Expect(cfg.LogLevel).To(Equal("info"))
	})

	It("overrides defaults from a config file", func() {
		path := filepath.Join(tempDir, "playerctld.yaml")
		contents := "connection_timeout: 30\nmax_connections: 5\nbind:\n  - \"unix:///tmp/playerctld.sock\"\n"
		Expect(os.WriteFile(path, []byte(contents), 0644)).To(Succeed())

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.ConnectionTimeout).To(Equal(30 * time.Second))
		Expect(cfg.MaxConnections).To(Equal(5))
		Expect(cfg.Bind).To(Equal([]string{"unix:///tmp/playerctld.sock"}))
	})

	It("rejects a non-positive max_connections", func() {
		path := filepath.Join(tempDir, "playerctld.yaml")
		Expect(os.WriteFile(path, []byte("max_connections: 0\n"), 0644)).To(Succeed())

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("max_connections"))
	})

	It("rejects a bind address with an unsupported scheme", func() {
		path := filepath.Join(tempDir, "playerctld.yaml")
		Expect(os.WriteFile(path, []byte("bind:\n  - \"http://127.0.0.1:80\"\n"), 0644)).To(Succeed())

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("bind address"))
	})

	It("fails on an unreadable config path", func() {
		_, err := config.Load(filepath.Join(tempDir, "does-not-exist.yaml"))
		Expect(err).To(HaveOccurred())
	})
})
