package handlers

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/orgadmin/internal/export"
	"github.com/jjenkins/orgadmin/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var exportsTotal = sync.OnceValue(func() *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgadmin",
		Name:      "exports_total",
		Help:      "Position roster downloads, by format and result.",
	}, []string{"format", "result"})
})

func exportFilename(ext string) string {
	return fmt.Sprintf("positions-%s.%s", time.Now().Format("2006-01-02"), ext)
}

func ExportCSVHandler(src service.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := loadAssembly(c, src)
		if err != nil {
			exportsTotal().WithLabelValues("csv", "error").Inc()
			return err
		}

		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Attachment(exportFilename("csv"))
		exportsTotal().WithLabelValues("csv", "ok").Inc()
		return c.SendString(export.ExportCSV(a.Roots))
	}
}

func ExportXLSXHandler(src service.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := loadAssembly(c, src)
		if err != nil {
			exportsTotal().WithLabelValues("xlsx", "error").Inc()
			return err
		}

		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, a.Roots); err != nil {
			exportsTotal().WithLabelValues("xlsx", "error").Inc()
			return fiber.NewError(fiber.StatusInternalServerError, "Error building spreadsheet")
		}

		c.Attachment(exportFilename("xlsx"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		exportsTotal().WithLabelValues("xlsx", "ok").Inc()
		return c.Send(buf.Bytes())
	}
}
