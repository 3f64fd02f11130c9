package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/bppowerplay/portal/internal/model"
)

const deviceCollection = "userDevices"

// DeviceRepository persists the remote device-ownership records, one document
// per account email. Writes are last-write-wins: there is no precondition
// check before an overwrite.
type DeviceRepository struct {
	client *firestore.Client
}

func NewDeviceRepository(client *firestore.Client) *DeviceRepository {
	return &DeviceRepository{client: client}
}

// Get returns the ownership record for an account, or nil if none exists.
// It returns an error only for store failures, not for missing documents.
func (r *DeviceRepository) Get(ctx context.Context, email string) (*model.DeviceRecord, error) {
	snap, err := r.client.Collection(deviceCollection).Doc(email).Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read device record: %w", err)
	}

	var rec model.DeviceRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode device record: %w", err)
	}
	return &rec, nil
}

// Upsert overwrites the account's ownership record with a merge-set. This is
// the single-active-device enforcement: whichever login writes last owns the
// session.
func (r *DeviceRepository) Upsert(ctx context.Context, email string, rec *model.DeviceRecord) error {
	_, err := r.client.Collection(deviceCollection).Doc(email).Set(ctx, rec, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to store device record: %w", err)
	}
	return nil
}

// TouchVerified refreshes only the lastVerified timestamp. lastLogin is owned
// by Upsert and must not change here.
func (r *DeviceRepository) TouchVerified(ctx context.Context, email string, at time.Time) error {
	_, err := r.client.Collection(deviceCollection).Doc(email).Update(ctx, []firestore.Update{
		{Path: "lastVerified", Value: at},
	})
	if err != nil {
		return fmt.Errorf("failed to update lastVerified: %w", err)
	}
	return nil
}

// Delete removes the account's ownership record.
func (r *DeviceRepository) Delete(ctx context.Context, email string) error {
	_, err := r.client.Collection(deviceCollection).Doc(email).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete device record: %w", err)
	}
	return nil
}
