package integration

import (
	"context"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pugnascotia/fleetwatch/internal/config"
	"github.com/pugnascotia/fleetwatch/internal/domain"
	"github.com/pugnascotia/fleetwatch/internal/es"
	"github.com/pugnascotia/fleetwatch/internal/suppression"
)

var _ = Describe("Suppression Lifecycle", func() {
	var (
		esClient *es.Client
		service  *suppression.Service
		rule     *domain.SuppressionRule
	)

	BeforeEach(func() {
		esClient = newESClient()
		setupIndices(esClient)

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = suppression.NewService(esClient, suppression.NewDefaultWrapper(), &config.SuppressionConfig{
			AlertsIndex:       alertsIndex,
			DefaultMaxSignals: 100,
		}, logger)

		rule = &domain.SuppressionRule{
			ID:                "it-rule",
			Name:              "failed logins by host",
			Index:             eventsIndex,
			GroupByFields:     []string{"host.name"},
			TimeWindowMinutes: 60,
			Severity:          "high",
			Enabled:           true,
		}
	})

	AfterEach(func() {
		cleanupIndices(esClient)
	})

	ingestEvent := func(host string, at time.Time) {
		doc := map[string]interface{}{
			"timestamp": at.UTC().Format(time.RFC3339),
			"message":   "login failed",
		}
		if host != "" {
			doc["host.name"] = host
		}
		indexDoc(esClient, eventsIndex, "", doc)
	}

	runPass := func(history []domain.BucketHistoryEntry) suppression.GroupResult {
		now := time.Now().UTC()
		return service.GroupAndCreate(context.Background(), suppression.GroupParams{
			Rule:          rule,
			From:          now.Add(-time.Hour),
			To:            now,
			MaxSignals:    100,
			BucketHistory: history,
		})
	}

	Context("When grouped events are aggregated", func() {
		It("creates one alert per bucket and suppresses already-seen buckets", func() {
			now := time.Now().UTC()

			// 1. Three events on web-1 and two on web-2, all inside the window
			for i := 0; i < 3; i++ {
				ingestEvent("web-1", now.Add(-10*time.Minute).Add(time.Duration(i)*time.Minute))
			}
			ingestEvent("web-2", now.Add(-8*time.Minute))
			ingestEvent("web-2", now.Add(-6*time.Minute))

			// 2. First pass creates one alert per host bucket
			first := runPass(nil)
			Expect(first.Success).To(BeTrue())
			Expect(first.Errors).To(BeEmpty())
			Expect(first.CreatedCount).To(Equal(2))
			Expect(first.BucketHistory).To(HaveLen(2))

			refreshIndex(esClient, alertsIndex)
			alerts := searchDocs(esClient, alertsIndex, matchTerm("rule_id", rule.ID))
			Expect(alerts).To(HaveLen(2))

			counts := map[string]float64{}
			for _, alert := range alerts {
				terms := alert["suppression_terms"].([]interface{})
				term := terms[0].(map[string]interface{})
				counts[term["value"].(string)] = alert["suppression_count"].(float64)
			}
			Expect(counts["web-1"]).To(Equal(float64(3)))
			Expect(counts["web-2"]).To(Equal(float64(2)))

			// 3. Second pass over the same window creates nothing new
			second := runPass(first.BucketHistory)
			Expect(second.Success).To(BeTrue())
			Expect(second.CreatedCount).To(Equal(0))
			Expect(second.BucketHistory).To(HaveLen(2))

			refreshIndex(esClient, alertsIndex)
			alerts = searchDocs(esClient, alertsIndex, matchTerm("rule_id", rule.ID))
			Expect(alerts).To(HaveLen(2))
		})

		It("alerts again when a suppressed bucket sees newer events", func() {
			now := time.Now().UTC()
			ingestEvent("web-1", now.Add(-10*time.Minute))

			first := runPass(nil)
			Expect(first.CreatedCount).To(Equal(1))

			// A newer event past the recorded bucket end re-opens the bucket
			ingestEvent("web-1", now.Add(-time.Minute))

			second := runPass(first.BucketHistory)
			Expect(second.Success).To(BeTrue())
			Expect(second.CreatedCount).To(Equal(1))

			refreshIndex(esClient, alertsIndex)
			alerts := searchDocs(esClient, alertsIndex, matchTerm("rule_id", rule.ID))
			Expect(alerts).To(HaveLen(2))
		})

		It("alerts on null-keyed buckets without recording them in history", func() {
			now := time.Now().UTC()
			ingestEvent("", now.Add(-5*time.Minute))

			result := runPass(nil)
			Expect(result.Success).To(BeTrue())
			Expect(result.CreatedCount).To(Equal(1))
			Expect(result.BucketHistory).To(BeEmpty())
			Expect(result.Warnings).To(HaveLen(1))
		})

		It("succeeds with nothing to do on an empty window", func() {
			result := runPass(nil)
			Expect(result.Success).To(BeTrue())
			Expect(result.CreatedCount).To(Equal(0))
			Expect(result.Errors).To(BeEmpty())
		})
	})
})
