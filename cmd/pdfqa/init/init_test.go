package initcmder_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/pdfqa/cmd/pdfqa/init"
	"github.com/papercomputeco/pdfqa/pkg/config"
)

func loadConfig(dir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(dir, ".pdfqa", "config.toml"))
	Expect(err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	Expect(toml.Unmarshal(data, cfg)).To(Succeed())
	return cfg
}

func runInit(args ...string) error {
	cmd := initcmder.NewInitCmd()
	cmd.SetOut(io.Discard)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func runInitOutput(args ...string) string {
	var out bytes.Buffer
	cmd := initcmder.NewInitCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	Expect(cmd.Execute()).To(Succeed())
	return out.String()
}

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has --preset and --force flags", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Flags().Lookup("preset")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("force")).NotTo(BeNil())
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "pdfqa-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("creates a .pdfqa directory with the offline config", func() {
		Expect(runInit()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".pdfqa"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Embedding.Provider).To(Equal("hashing"))
		Expect(cfg.VectorStore.Provider).To(Equal("file"))
	})

	It("says plainly that the offline preset is not semantic search", func() {
		out := runInitOutput()
		Expect(out).To(ContainSubstring("not semantic search"))
		Expect(out).To(ContainSubstring("--preset ollama"))
	})

	It("does not print the offline notice for semantic presets", func() {
		out := runInitOutput("--preset", "openai")
		Expect(out).NotTo(ContainSubstring("not semantic search"))
	})

	It("writes the chosen preset", func() {
		Expect(runInit("--preset", "ollama")).To(Succeed())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
	})

	It("keeps an existing config unless forced", func() {
		Expect(runInit("--preset", "ollama")).To(Succeed())
		Expect(runInit("--preset", "openai")).To(Succeed())
		Expect(loadConfig(tmpDir).Embedding.Provider).To(Equal("ollama"))

		Expect(runInit("--preset", "openai", "--force")).To(Succeed())
		Expect(loadConfig(tmpDir).Embedding.Provider).To(Equal("openai"))
	})

	It("rejects an unknown preset", func() {
		Expect(runInit("--preset", "bogus")).To(MatchError(ContainSubstring("unknown preset")))
		_, err := os.Stat(filepath.Join(tmpDir, ".pdfqa"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})
})
