// Package fleet implements bulk tag updates on managed-agent documents.
// Updates are executed as scoped update-by-query calls against the agents
// index; version conflicts drive a bounded retry loop, and every attempt
// records an action document plus one result document per targeted agent.
package fleet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pugnascotia/fleetwatch/internal/config"
	"github.com/pugnascotia/fleetwatch/internal/domain"
	"github.com/pugnascotia/fleetwatch/internal/es"
	"github.com/pugnascotia/fleetwatch/internal/metrics"
	"github.com/pugnascotia/fleetwatch/internal/queue"
	"github.com/pugnascotia/fleetwatch/internal/store"
	"github.com/pugnascotia/fleetwatch/schema"
)

// reasonConflictOnLastRetry is the terminal failure reason written when the
// retry budget runs out with conflicts still unresolved.
const reasonConflictOnLastRetry = "version conflict on last retry"

// Engine is the subset of the document engine the controller needs.
type Engine interface {
	Search(ctx context.Context, index string, query map[string]interface{}) (*es.SearchResult, error)
	UpdateByQuery(ctx context.Context, index string, body map[string]interface{}) (*es.UpdateByQueryResult, error)
	Bulk(ctx context.Context, index string, docs []es.BulkDoc) (*es.BulkResult, error)
}

// Service is the batch tag-update controller.
type Service struct {
	engine     Engine
	policyRepo store.AgentPolicyRepository
	producer   queue.Producer
	cfg        *config.FleetConfig
	logger     *slog.Logger
}

// NewService creates a new tag-update controller. producer may be nil,
// in which case oversized query selections are rejected instead of being
// escalated to the async runner.
func NewService(
	engine Engine,
	policyRepo store.AgentPolicyRepository,
	producer queue.Producer,
	cfg *config.FleetConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		engine:     engine,
		policyRepo: policyRepo,
		producer:   producer,
		cfg:        cfg,
		logger:     logger,
	}
}

// UpdateTags applies the requested tag changes to the selected agents.
//
// Query selections resolving to more agents than the batch size are handed
// to the asynchronous batch runner; the returned action is then a handle
// for work that completes out-of-band. Otherwise a single scoped update
// runs synchronously. A *VersionConflictError return means the caller
// should retry with an incremented RetryCount; UpdateTagsWithRetries wraps
// that loop.
func (s *Service) UpdateTags(ctx context.Context, req *domain.TagUpdateRequest) (*schema.Action, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	actionID := uuid.New().String()

	if req.ByQuery() {
		countRes, err := s.engine.Search(ctx, s.cfg.AgentsIndex, buildCountQuery(req))
		if err != nil {
			metrics.TagUpdatesTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		resolved := countRes.Total

		batchSize := req.BatchSize
		if batchSize <= 0 {
			batchSize = s.cfg.BatchSize
		}

		if resolved > batchSize {
			return s.escalate(ctx, actionID, req, resolved, batchSize)
		}

		agentIDs, err := s.resolvePage(ctx, req, batchSize, "")
		if err != nil {
			metrics.TagUpdatesTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		return s.updateBatch(ctx, actionID, req, agentIDs, resolved, true)
	}

	return s.updateBatch(ctx, actionID, req, req.AgentIDs, len(req.AgentIDs), true)
}

// UpdateTagsWithRetries runs UpdateTags, retrying the same batch on
// version conflicts until the controller reports a terminal outcome.
func (s *Service) UpdateTagsWithRetries(ctx context.Context, req *domain.TagUpdateRequest) (*schema.Action, error) {
	for {
		action, err := s.UpdateTags(ctx, req)
		var conflict *VersionConflictError
		if errors.As(err, &conflict) {
			req.RetryCount++
			s.logger.Warn("retrying tag update after version conflict",
				"conflicts", conflict.Conflicts,
				"retryCount", req.RetryCount,
			)
			continue
		}
		return action, err
	}
}

// escalate hands an oversized query selection to the async batch runner
// and returns immediately with the action handle.
func (s *Service) escalate(ctx context.Context, actionID string, req *domain.TagUpdateRequest, resolved, batchSize int) (*schema.Action, error) {
	if s.producer == nil {
		return nil, errors.New("selection exceeds batch size and no batch runner is configured")
	}

	action := &schema.Action{
		ActionID:  actionID,
		Type:      schema.ActionTypeUpdateTags,
		Total:     resolved,
		Timestamp: time.Now().UTC(),
	}

	// The aggregate record is written exactly once, here, carrying the
	// resolved total. Runner batches append per-agent results under the
	// same action ID but never touch the aggregate again.
	docs := []es.BulkDoc{{ID: actionID, Source: action}}
	if _, err := s.engine.Bulk(ctx, s.cfg.ActionResultsIndex, docs); err != nil {
		metrics.TagUpdatesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	job := &domain.TagUpdateJob{
		ActionID:     actionID,
		Kuery:        req.Kuery,
		TagsToAdd:    req.TagsToAdd,
		TagsToRemove: req.TagsToRemove,
		BatchSize:    batchSize,
		Total:        resolved,
	}
	if err := s.producer.Publish(ctx, job); err != nil {
		metrics.TagUpdatesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.TagUpdateBatchesDispatched.Inc()
	s.logger.Info("tag update handed to async batch runner",
		"actionID", actionID,
		"total", resolved,
		"batchSize", batchSize,
	)

	return action, nil
}

// updateBatch runs the single-batch state machine: one scoped update, one
// batched outcome write. recordAction includes the aggregate action
// document in the write; runner batches pass false because the aggregate
// was persisted at hand-off.
func (s *Service) updateBatch(ctx context.Context, actionID string, req *domain.TagUpdateRequest, agentIDs []string, resolved int, recordAction bool) (*schema.Action, error) {
	started := time.Now()

	res, err := s.engine.UpdateByQuery(ctx, s.cfg.AgentsIndex, buildUpdateBody(req, agentIDs, started))
	if err != nil {
		metrics.TagUpdatesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.TagUpdateLatency.Observe(time.Since(started).Seconds())

	// Conflicts on a non-final attempt fail the whole batch so the caller
	// can retry it. On the final attempt they become a terminal failure
	// outcome instead.
	conflictOnLastRetry := false
	if res.VersionConflicts > 0 {
		metrics.TagUpdateConflictsTotal.Add(float64(res.VersionConflicts))
		if req.RetryCount < s.cfg.MaxRetries-1 {
			metrics.TagUpdatesTotal.WithLabelValues("conflict").Inc()
			return nil, &VersionConflictError{Conflicts: res.VersionConflicts}
		}
		conflictOnLastRetry = true
		s.logger.Warn("version conflicts on final retry, recording terminal failure",
			"actionID", actionID,
			"conflicts", res.VersionConflicts,
		)
	}

	// The engine's total is authoritative when the selection was a query:
	// agents may have dropped out between resolution and execution.
	total := resolved
	if req.ByQuery() && res.Total < total {
		total = res.Total
	}

	agents, excluded, err := s.excludeManagedAgents(ctx, agentIDs)
	if err != nil {
		metrics.TagUpdatesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	total -= excluded
	if total < 0 {
		total = 0
	}

	action := &schema.Action{
		ActionID:  actionID,
		Type:      schema.ActionTypeUpdateTags,
		Agents:    agents,
		Total:     total,
		Timestamp: time.Now().UTC(),
	}

	docs := buildOutcomeDocs(action, agents, res, conflictOnLastRetry, recordAction)
	if len(docs) > 0 {
		if _, err := s.engine.Bulk(ctx, s.cfg.ActionResultsIndex, docs); err != nil {
			metrics.TagUpdatesTotal.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	metrics.TagUpdatesTotal.WithLabelValues("completed").Inc()
	metrics.TagUpdateAgentsTotal.Add(float64(total))
	s.logger.Info("tag update completed",
		"actionID", actionID,
		"total", total,
		"updated", res.Updated,
		"failures", len(res.Failures),
	)

	return action, nil
}

// resolvePage resolves one page of matching agent IDs in stable order.
// searchAfter is the last agent ID of the previous page; empty for the
// first page.
func (s *Service) resolvePage(ctx context.Context, selection *domain.TagUpdateRequest, pageSize int, searchAfter string) ([]string, error) {
	res, err := s.engine.Search(ctx, s.cfg.AgentsIndex, buildPageQuery(selection, pageSize, searchAfter))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if id, ok := hit["agent_id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// excludeManagedAgents drops agents enrolled in managed (locked) policies
// from the outcome's agent list and returns how many were excluded.
func (s *Service) excludeManagedAgents(ctx context.Context, agentIDs []string) ([]string, int, error) {
	if len(agentIDs) == 0 {
		return nil, 0, nil
	}

	managed, err := s.policyRepo.ListManagedIDs(ctx)
	if err != nil {
		return nil, 0, err
	}
	if len(managed) == 0 {
		return agentIDs, 0, nil
	}

	ids := make([]interface{}, 0, len(agentIDs))
	for _, id := range agentIDs {
		ids = append(ids, id)
	}
	policyIDs := make([]interface{}, 0, len(managed))
	for _, id := range managed {
		policyIDs = append(policyIDs, id)
	}

	res, err := s.engine.Search(ctx, s.cfg.AgentsIndex, map[string]interface{}{
		"size":    len(agentIDs),
		"_source": []interface{}{"agent_id"},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"terms": map[string]interface{}{"agent_id": ids}},
					map[string]interface{}{"terms": map[string]interface{}{"policy_id": policyIDs}},
				},
			},
		},
	})
	if err != nil {
		return nil, 0, err
	}

	locked := make(map[string]struct{}, len(res.Hits))
	for _, hit := range res.Hits {
		if id, ok := hit["agent_id"].(string); ok {
			locked[id] = struct{}{}
		}
	}
	if len(locked) == 0 {
		return agentIDs, 0, nil
	}

	kept := make([]string, 0, len(agentIDs))
	for _, id := range agentIDs {
		if _, isLocked := locked[id]; !isLocked {
			kept = append(kept, id)
		}
	}
	return kept, len(agentIDs) - len(kept), nil
}

// buildOutcomeDocs assembles the single batched write: one result
// document per targeted agent, with per-agent failures overriding the
// default success, plus the aggregate action document when includeAction
// is set.
func buildOutcomeDocs(action *schema.Action, agents []string, res *es.UpdateByQueryResult, conflictOnLastRetry, includeAction bool) []es.BulkDoc {
	now := time.Now().UTC()
	var docs []es.BulkDoc
	if includeAction {
		docs = append(docs, es.BulkDoc{ID: action.ActionID, Source: action})
	}

	// Failures with a document ID attach to that agent; anonymous
	// failures are attributed to targeted agents in order.
	failureByAgent := make(map[string]string, len(res.Failures))
	var anonymous []string
	for _, failure := range res.Failures {
		if failure.ID != "" {
			failureByAgent[failure.ID] = failure.Cause.Reason
		} else {
			anonymous = append(anonymous, failure.Cause.Reason)
		}
	}
	for i, reason := range anonymous {
		if i < len(agents) {
			if _, taken := failureByAgent[agents[i]]; !taken {
				failureByAgent[agents[i]] = reason
			}
		}
	}

	for _, agentID := range agents {
		docs = append(docs, es.BulkDoc{Source: &schema.ActionResult{
			ActionID:    action.ActionID,
			AgentID:     agentID,
			Error:       failureByAgent[agentID],
			CompletedAt: now,
		}})
	}

	if conflictOnLastRetry {
		docs = append(docs, es.BulkDoc{Source: &schema.ActionResult{
			ActionID:    action.ActionID,
			Error:       reasonConflictOnLastRetry,
			CompletedAt: now,
		}})
	}

	return docs
}
