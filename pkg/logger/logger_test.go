package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/divider/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("should create a logger", func() {
			log := logger.New("consumer", "info", false, "dev")
			Expect(log).NotTo(BeNil())
		})

		DescribeTable("level handling",
			func(level string, enabled, disabled slog.Level) {
				log := logger.New("consumer", level, false, "dev")
				Expect(log.Enabled(context.Background(), enabled)).To(BeTrue())
				Expect(log.Enabled(context.Background(), disabled)).To(BeFalse())
			},
			Entry("info", "info", slog.LevelInfo, slog.LevelDebug),
			Entry("warn", "warn", slog.LevelWarn, slog.LevelInfo),
			Entry("error", "error", slog.LevelError, slog.LevelWarn),
			Entry("invalid defaults to info", "invalid", slog.LevelInfo, slog.LevelDebug),
		)

		It("should respect debug level", func() {
			log := logger.New("consumer", "DEBUG", false, "dev")
			Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())
		})
	})

	Describe("NewWithWriter", func() {
		var buf *bytes.Buffer

		BeforeEach(func() {
			buf = &bytes.Buffer{}
		})

		It("should write JSON in prod with service and environment", func() {
			log := logger.NewWithWriter(buf, "provider", "info", false, "prod")
			log.Info("hello", slog.Int("a", 10))

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record).To(HaveKeyWithValue("msg", "hello"))
			Expect(record).To(HaveKeyWithValue("service", "provider"))
			Expect(record).To(HaveKeyWithValue("environment", "prod"))
			Expect(record).To(HaveKeyWithValue("a", BeNumerically("==", 10)))
		})

		It("should write text outside prod", func() {
			log := logger.NewWithWriter(buf, "consumer", "info", false, "staging")
			log.Info("hello")

			Expect(buf.String()).To(ContainSubstring("msg=hello"))
			Expect(buf.String()).To(ContainSubstring("service=consumer"))
			Expect(buf.String()).To(ContainSubstring("environment=staging"))
		})

		It("should include source when requested", func() {
			log := logger.NewWithWriter(buf, "consumer", "info", true, "dev")
			log.Info("hello")

			Expect(buf.String()).To(ContainSubstring("source="))
		})
	})

	Describe("NewLevel", func() {
		It("should change the level of a running logger", func() {
			buf := &bytes.Buffer{}
			level := logger.NewLevel("warn")
			log := logger.NewWithLevel(buf, "provider", level, false, "dev")

			log.Info("hidden")
			Expect(buf.String()).To(BeEmpty())

			level.Set(logger.ParseLevel("debug"))
			log.Debug("shown")
			Expect(buf.String()).To(ContainSubstring("msg=shown"))
		})
	})
})
