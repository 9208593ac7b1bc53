package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"waiver-sync/pkg/clients/shopify"
	"waiver-sync/pkg/clients/smartwaiver"
	"waiver-sync/pkg/models"
)

// SyncService runs the reconciliation pipeline over a feed of waivers.
type SyncService interface {
	// Run drains one batch from the feed and processes each waiver in feed
	// order. Feed-level failures (list or fetch) abort the batch and are
	// returned alongside the partial report; per-waiver platform failures are
	// recorded in the report and never stop sibling waivers.
	Run(ctx context.Context, feed FeedReader) (*models.SyncReport, error)
}

type syncServiceImpl struct {
	smartwaiver       smartwaiver.Client
	shopify           shopify.Client
	classifier        *TagClassifier
	placeholderDomain string
	logger            *slog.Logger
	now               func() time.Time
}

// NewSyncService creates the waiver reconciliation pipeline.
func NewSyncService(
	smartwaiverClient smartwaiver.Client,
	shopifyClient shopify.Client,
	classifier *TagClassifier,
	placeholderDomain string,
	logger *slog.Logger,
) SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &syncServiceImpl{
		smartwaiver:       smartwaiverClient,
		shopify:           shopifyClient,
		classifier:        classifier,
		placeholderDomain: placeholderDomain,
		logger:            logger,
		now:               time.Now,
	}
}

func (s *syncServiceImpl) Run(ctx context.Context, feed FeedReader) (*models.SyncReport, error) {
	report := &models.SyncReport{RunID: uuid.NewString()}
	log := s.logger.With("run_id", report.RunID)

	ids, err := feed.NextBatch(ctx)
	if err != nil {
		return report, fmt.Errorf("reading waiver feed: %w", err)
	}

	log.Info("processing waiver batch", "count", len(ids))

	// Waivers are processed strictly one at a time, in feed order. Two
	// waivers sharing an email must not race the resolve-then-write sequence
	// against the customer directory, or both would see "not found" and
	// create duplicate customers.
	for _, id := range ids {
		waiver, err := s.smartwaiver.GetWaiver(ctx, id)
		if err != nil {
			// Loss of the waiver source aborts the batch; waivers not yet
			// processed have had no customer writes.
			return report, fmt.Errorf("fetching waiver %s: %w", id, err)
		}

		if email, err := s.processWaiver(ctx, log, waiver); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, models.WaiverFailure{
				WaiverID: waiver.WaiverID,
				Email:    email,
				Error:    err.Error(),
			})
			log.Error("waiver sync failed", "waiver_id", waiver.WaiverID, "email", email, "err", err)
			continue
		}

		report.Processed++
	}

	log.Info("batch complete", "processed", report.Processed, "failed", report.Failed)
	return report, nil
}

// processWaiver runs extract, classify, resolve, merge, and enrich for one
// waiver. All log entries go through the run-scoped logger so per-waiver
// entries correlate with their batch. The returned email identifies the
// waiver in failure reports.
func (s *syncServiceImpl) processWaiver(ctx context.Context, log *slog.Logger, w *models.Waiver) (string, error) {
	profile := ExtractProfile(w, s.placeholderDomain)
	tags := s.classifier.Classify(w.TemplateID)

	customer, err := s.upsertCustomer(ctx, w, profile, tags)
	if err != nil {
		return profile.Email, err
	}

	s.enrich(ctx, log, customer, profile)

	log.Info("synced waiver", "waiver_id", w.WaiverID, "email", profile.Email, "customer_id", customer.ID)
	return profile.Email, nil
}

// upsertCustomer resolves the customer by email and either merges the new
// facts into the existing record or creates a fresh one. Both branches return
// a handle carrying the id and the current known phone for the consent step.
func (s *syncServiceImpl) upsertCustomer(ctx context.Context, w *models.Waiver, profile models.Profile, tags []string) (*shopify.Customer, error) {
	note := fmt.Sprintf("Signed waiver on %s (Waiver ID: %s)", w.CreatedOn, w.WaiverID)

	existing, err := s.shopify.SearchCustomerByEmail(ctx, profile.Email)
	if err != nil {
		return nil, fmt.Errorf("searching customer: %w", err)
	}

	if existing != nil {
		upd := shopify.CustomerUpdate{
			ID:               existing.ID,
			Tags:             MergeTags(existing.Tags, tags),
			Note:             note,
			AcceptsMarketing: true,
		}
		if err := s.shopify.UpdateCustomer(ctx, upd); err != nil {
			return nil, fmt.Errorf("updating customer %d: %w", existing.ID, err)
		}
		return existing, nil
	}

	created, err := s.shopify.CreateCustomer(ctx, shopify.NewCustomer{
		Email:            profile.Email,
		FirstName:        profile.FirstName,
		LastName:         profile.LastName,
		Phone:            profile.Phone,
		Tags:             JoinTags(tags),
		Note:             note,
		AcceptsMarketing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating customer: %w", err)
	}
	return created, nil
}

// enrich issues the best-effort secondary writes. Each sub-operation is
// independent; a failure is logged and swallowed, never rolling back the
// customer write and never blocking the other sub-operation.
func (s *syncServiceImpl) enrich(ctx context.Context, log *slog.Logger, customer *shopify.Customer, profile models.Profile) {
	if profile.DateOfBirth != "" {
		m := shopify.Metafield{
			Namespace: "custom",
			Key:       "dob",
			Value:     profile.DateOfBirth,
			Type:      "date",
		}
		if err := s.shopify.CreateMetafield(ctx, customer.ID, m); err != nil {
			log.Error("dob metafield write failed", "customer_id", customer.ID, "err", err)
		}
	}

	// SMS consent needs a phone on the customer record itself; created
	// customers carry the profile phone, resolved ones whatever Shopify
	// already had.
	consent := shopify.ConsentUpdate{
		EmailOptIn: true,
		SMSOptIn:   customer.Phone != "",
		UpdatedAt:  s.now(),
	}
	if err := s.shopify.UpdateMarketingConsent(ctx, customer.ID, consent); err != nil {
		log.Error("consent update failed", "customer_id", customer.ID, "err", err)
	}
}
