package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/openstall/marketfeed/internal/dbx"
	"github.com/openstall/marketfeed/internal/market"
)

// SQLiteSnapshotRepository implements SnapshotRepository on the cache DB.
type SQLiteSnapshotRepository struct {
	db *sql.DB
}

// NewSQLiteSnapshotRepository returns a repository bound to db.
func NewSQLiteSnapshotRepository(db *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{db: db}
}

// orderingJSON is the persisted form of an ordering overlay.
type orderingJSON struct {
	IDs       []string        `json:"ids"`
	UpdatedAt nostr.Timestamp `json:"updated_at"`
}

func encodeOrdering(o *market.Ordering) (sql.NullString, error) {
	if o == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(orderingJSON{IDs: o.IDs, UpdatedAt: o.UpdatedAt})
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeOrdering(s sql.NullString) (*market.Ordering, error) {
	if !s.Valid {
		return nil, nil
	}
	var oj orderingJSON
	if err := json.Unmarshal([]byte(s.String), &oj); err != nil {
		return nil, err
	}
	return &market.Ordering{IDs: oj.IDs, UpdatedAt: oj.UpdatedAt}, nil
}

// Save replaces the persisted tree with snap in one transaction.
func (r *SQLiteSnapshotRepository) Save(ctx context.Context, snap market.Snapshot) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range []string{"items", "sections", "vendors"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return err
			}
		}

		for vn, v := range snap.Vendors {
			ordering, err := encodeOrdering(v.Ordering)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO vendors (pubkey, name, about, picture, ordering, updated_at, position)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				v.PubKey, v.Name, v.About, v.Picture, ordering, int64(v.UpdatedAt), vn)
			if err != nil {
				return err
			}

			for sn, s := range v.Sections {
				ordering, err := encodeOrdering(s.Ordering)
				if err != nil {
					return err
				}
				_, err = tx.ExecContext(ctx,
					`INSERT INTO sections (pubkey, id, name, description, currency, draft, ordering, updated_at, position)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					s.PubKey, s.ID, s.Name, s.Description, s.Currency, s.Draft, ordering, int64(s.UpdatedAt), sn)
				if err != nil {
					return err
				}

				for in, it := range s.Items {
					images, err := json.Marshal(it.Images)
					if err != nil {
						return err
					}
					_, err = tx.ExecContext(ctx,
						`INSERT INTO items (pubkey, section_id, id, name, description, images, price, currency, updated_at, position)
						 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
						it.PubKey, it.SectionID, it.ID, it.Name, it.Description, string(images), it.Price, it.Currency, int64(it.UpdatedAt), in)
					if err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Load rebuilds the persisted tree, preserving relative order.
func (r *SQLiteSnapshotRepository) Load(ctx context.Context) (market.Snapshot, error) {
	var snap market.Snapshot

	vendors, err := r.loadVendors(ctx)
	if err != nil {
		return snap, fmt.Errorf("loading snapshot: %w", err)
	}

	byPub := make(map[string]*market.Vendor, len(vendors))
	for _, v := range vendors {
		byPub[v.PubKey] = v
	}

	sections, err := r.loadSections(ctx)
	if err != nil {
		return snap, fmt.Errorf("loading snapshot: %w", err)
	}
	byID := make(map[string]*market.Section, len(sections))
	for _, s := range sections {
		if v, ok := byPub[s.PubKey]; ok {
			v.Sections = append(v.Sections, s)
			byID[s.PubKey+"/"+s.ID] = s
		}
	}

	if err := r.loadItems(ctx, byID); err != nil {
		return snap, fmt.Errorf("loading snapshot: %w", err)
	}

	snap.Vendors = vendors
	return snap, nil
}

func (r *SQLiteSnapshotRepository) loadVendors(ctx context.Context) ([]*market.Vendor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT pubkey, name, about, picture, ordering, updated_at FROM vendors ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vendors []*market.Vendor
	for rows.Next() {
		v := &market.Vendor{Sections: []*market.Section{}}
		var ordering sql.NullString
		var updatedAt int64
		if err := rows.Scan(&v.PubKey, &v.Name, &v.About, &v.Picture, &ordering, &updatedAt); err != nil {
			return nil, err
		}
		if v.Ordering, err = decodeOrdering(ordering); err != nil {
			return nil, err
		}
		v.UpdatedAt = nostr.Timestamp(updatedAt)
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func (r *SQLiteSnapshotRepository) loadSections(ctx context.Context) ([]*market.Section, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT pubkey, id, name, description, currency, draft, ordering, updated_at
		 FROM sections ORDER BY pubkey, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []*market.Section
	for rows.Next() {
		s := &market.Section{Items: []*market.Item{}}
		var ordering sql.NullString
		var updatedAt int64
		if err := rows.Scan(&s.PubKey, &s.ID, &s.Name, &s.Description, &s.Currency, &s.Draft, &ordering, &updatedAt); err != nil {
			return nil, err
		}
		if s.Ordering, err = decodeOrdering(ordering); err != nil {
			return nil, err
		}
		s.UpdatedAt = nostr.Timestamp(updatedAt)
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func (r *SQLiteSnapshotRepository) loadItems(ctx context.Context, sections map[string]*market.Section) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT pubkey, section_id, id, name, description, images, price, currency, updated_at
		 FROM items ORDER BY pubkey, section_id, position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		it := &market.Item{}
		var images sql.NullString
		var updatedAt int64
		if err := rows.Scan(&it.PubKey, &it.SectionID, &it.ID, &it.Name, &it.Description, &images, &it.Price, &it.Currency, &updatedAt); err != nil {
			return err
		}
		if images.Valid {
			if err := json.Unmarshal([]byte(images.String), &it.Images); err != nil {
				return err
			}
		}
		it.UpdatedAt = nostr.Timestamp(updatedAt)
		if s, ok := sections[it.PubKey+"/"+it.SectionID]; ok {
			s.Items = append(s.Items, it)
		}
	}
	return rows.Err()
}
