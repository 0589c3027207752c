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
	"github.com/pugnascotia/fleetwatch/internal/fleet"
	memorystor "github.com/pugnascotia/fleetwatch/internal/store/memory"
	"github.com/pugnascotia/fleetwatch/schema"
)

var _ = Describe("Tag Update Lifecycle", func() {
	var (
		esClient   *es.Client
		policyRepo *memorystor.AgentPolicyRepository
		service    *fleet.Service
	)

	BeforeEach(func() {
		esClient = newESClient()
		setupIndices(esClient)

		policyRepo = memorystor.NewAgentPolicyRepository()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = fleet.NewService(esClient, policyRepo, nil, &config.FleetConfig{
			AgentsIndex:        agentsIndex,
			ActionResultsIndex: actionResultsIndex,
			BatchSize:          100,
			MaxRetries:         3,
		}, logger)
	})

	AfterEach(func() {
		cleanupIndices(esClient)
	})

	seedAgent := func(id, status, policyID string, tags []string) {
		indexDoc(esClient, agentsIndex, id, map[string]interface{}{
			"agent_id":   id,
			"status":     status,
			"policy_id":  policyID,
			"tags":       tags,
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		})
	}

	agentTags := func(id string) []interface{} {
		hits := searchDocs(esClient, agentsIndex, matchTerm("agent_id", id))
		Expect(hits).To(HaveLen(1))
		tags, _ := hits[0]["tags"].([]interface{})
		return tags
	}

	Context("When agents are selected by explicit IDs", func() {
		It("applies tag changes, skips terminal agents, and records one result per target", func() {
			// 1. Seed two live agents and one unenrolled agent
			seedAgent("agent-1", "online", "policy-1", []string{"two"})
			seedAgent("agent-2", "offline", "policy-1", []string{})
			seedAgent("agent-3", "unenrolled", "policy-1", []string{"two"})

			// 2. Add "one" (given twice) and remove "two" across all three
			req := &domain.TagUpdateRequest{
				AgentIDs:     []string{"agent-1", "agent-2", "agent-3"},
				TagsToAdd:    []string{"one", "one"},
				TagsToRemove: []string{"two"},
			}
			action, err := service.UpdateTagsWithRetries(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(action.Total).To(Equal(3))

			refreshIndex(esClient, agentsIndex)

			// 3. Live agents changed, the duplicate add collapsed to one tag
			Expect(agentTags("agent-1")).To(ConsistOf("one"))
			Expect(agentTags("agent-2")).To(ConsistOf("one"))

			// 4. The unenrolled agent was never touched
			Expect(agentTags("agent-3")).To(ConsistOf("two"))

			// 5. One action document plus one result per targeted agent
			refreshIndex(esClient, actionResultsIndex)
			outcomes := searchDocs(esClient, actionResultsIndex, matchTerm("action_id", action.ActionID))
			Expect(outcomes).To(HaveLen(4))

			actionDocs := 0
			resultAgents := []string{}
			for _, doc := range outcomes {
				if doc["type"] == schema.ActionTypeUpdateTags {
					actionDocs++
					continue
				}
				if id, ok := doc["agent_id"].(string); ok {
					resultAgents = append(resultAgents, id)
				}
			}
			Expect(actionDocs).To(Equal(1))
			Expect(resultAgents).To(ConsistOf("agent-1", "agent-2", "agent-3"))
		})

		It("is idempotent when the tag is already present", func() {
			seedAgent("agent-1", "online", "policy-1", []string{"prod"})

			req := &domain.TagUpdateRequest{
				AgentIDs:  []string{"agent-1"},
				TagsToAdd: []string{"prod"},
			}
			_, err := service.UpdateTagsWithRetries(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())

			refreshIndex(esClient, agentsIndex)
			Expect(agentTags("agent-1")).To(ConsistOf("prod"))
		})
	})

	Context("When agents are selected by query", func() {
		It("updates matching agents and reconciles the outcome with the engine total", func() {
			seedAgent("agent-1", "online", "policy-1", []string{})
			seedAgent("agent-2", "online", "policy-1", []string{})
			seedAgent("agent-3", "inactive", "policy-1", []string{})

			req := &domain.TagUpdateRequest{
				Kuery:     "status:online",
				TagsToAdd: []string{"batch"},
			}
			action, err := service.UpdateTagsWithRetries(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			Expect(action.Total).To(Equal(2))

			refreshIndex(esClient, agentsIndex)
			Expect(agentTags("agent-1")).To(ConsistOf("batch"))
			Expect(agentTags("agent-2")).To(ConsistOf("batch"))
			Expect(agentTags("agent-3")).To(BeEmpty())
		})

		It("excludes agents on managed policies from the recorded outcome", func() {
			locked := &domain.AgentPolicy{ID: "policy-locked", Name: "Hosted", IsManaged: true}
			Expect(policyRepo.Create(context.Background(), locked)).To(Succeed())

			seedAgent("agent-1", "online", "policy-1", []string{})
			seedAgent("agent-2", "online", "policy-locked", []string{})

			req := &domain.TagUpdateRequest{
				Kuery:     "status:online",
				TagsToAdd: []string{"batch"},
			}
			action, err := service.UpdateTagsWithRetries(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())

			Expect(action.Agents).To(ConsistOf("agent-1"))
			Expect(action.Total).To(Equal(1))
		})
	})
})
