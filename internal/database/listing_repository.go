package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Common errors
var (
	ErrNotFound        = errors.New("listing not found")
	ErrVersionMismatch = errors.New("version mismatch")
)

// ListingRepository handles listing persistence.
type ListingRepository struct {
	db *DB
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *DB) *ListingRepository {
	return &ListingRepository{db: db}
}

const listingColumns = `id, item, quantity, price_emeralds, seller, description, version, expires_at, created_at, updated_at`

func scanListing(row pgx.Row) (*Listing, error) {
	var l Listing
	err := row.Scan(
		&l.ID,
		&l.Item,
		&l.Quantity,
		&l.PriceEmeralds,
		&l.Seller,
		&l.Description,
		&l.Version,
		&l.ExpiresAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Get retrieves a listing by ID. Expired listings are treated as
// absent and lazily deleted.
func (r *ListingRepository) Get(ctx context.Context, id uuid.UUID) (*Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	listing, err := scanListing(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	if listing.IsExpired() {
		_ = r.Delete(ctx, id)
		return nil, ErrNotFound
	}

	return listing, nil
}

// GetBatch retrieves multiple listings at once. Absent and expired IDs
// are simply missing from the result.
func (r *ListingRepository) GetBatch(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Listing, error) {
	result := make(map[uuid.UUID]*Listing, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT ` + listingColumns + ` FROM listings
		WHERE id = ANY($1) AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get listings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		result[listing.ID] = listing
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}

	return result, nil
}

// Search returns listings matching the filter plus the total match
// count for paging. Expired listings never match.
func (r *ListingRepository) Search(ctx context.Context, filter SearchFilter) ([]*Listing, int, error) {
	filter.Normalize()

	conditions := []string{"(expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)"}
	args := []interface{}{}

	if filter.Item != "" {
		args = append(args, filter.Item)
		conditions = append(conditions, "item = $"+strconv.Itoa(len(args)))
	}
	if filter.Seller != "" {
		args = append(args, filter.Seller)
		conditions = append(conditions, "seller = $"+strconv.Itoa(len(args)))
	}
	if filter.MaxPrice > 0 {
		args = append(args, filter.MaxPrice)
		conditions = append(conditions, "price_emeralds <= $"+strconv.Itoa(len(args)))
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM listings ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	args = append(args, filter.Limit)
	limitPos := strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPos := strconv.Itoa(len(args))

	query := `SELECT ` + listingColumns + ` FROM listings ` + where +
		` ORDER BY created_at DESC LIMIT $` + limitPos + ` OFFSET $` + offsetPos

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search listings: %w", err)
	}
	defer rows.Close()

	var listings []*Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating listings: %w", err)
	}

	return listings, total, nil
}

// Create inserts a new listing and returns it with server-assigned
// fields populated.
func (r *ListingRepository) Create(ctx context.Context, listing *Listing) (*Listing, error) {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}

	query := `
		INSERT INTO listings (id, item, quantity, price_emeralds, seller, description, version, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
		RETURNING ` + listingColumns

	created, err := scanListing(r.db.QueryRow(ctx, query,
		listing.ID,
		listing.Item,
		listing.Quantity,
		listing.PriceEmeralds,
		listing.Seller,
		listing.Description,
		listing.ExpiresAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	return created, nil
}

// Update applies changes with optimistic locking: the row is updated
// only when its current version matches expectedVersion, and the
// version is bumped atomically.
func (r *ListingRepository) Update(ctx context.Context, id uuid.UUID, listing *Listing, expectedVersion int) (*Listing, error) {
	query := `
		UPDATE listings
		SET quantity = $2,
		    price_emeralds = $3,
		    description = $4,
		    expires_at = $5,
		    version = version + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND version = $6
		RETURNING ` + listingColumns

	updated, err := scanListing(r.db.QueryRow(ctx, query,
		id,
		listing.Quantity,
		listing.PriceEmeralds,
		listing.Description,
		listing.ExpiresAt,
		expectedVersion,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing row from a stale version.
			var exists bool
			checkErr := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM listings WHERE id = $1)`, id).Scan(&exists)
			if checkErr == nil && !exists {
				return nil, ErrNotFound
			}
			return nil, ErrVersionMismatch
		}
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}

	return updated, nil
}

// Delete removes a listing. Deleting an absent listing is not an
// error.
func (r *ListingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return nil
}

// CleanupExpired removes lapsed listings in batches, returning the
// number deleted.
func (r *ListingRepository) CleanupExpired(ctx context.Context, batchSize int) (int, error) {
	query := `
		DELETE FROM listings
		WHERE id IN (
			SELECT id FROM listings
			WHERE expires_at IS NOT NULL AND expires_at < CURRENT_TIMESTAMP
			LIMIT $1
		)
	`

	result, err := r.db.Exec(ctx, query, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired listings: %w", err)
	}

	return int(result.RowsAffected()), nil
}
