package contact

import (
	"context"

	"github.com/akshu187/smartsafe/internal/db"

	"github.com/google/uuid"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, input Contact) (Contact, error) {
	input.ID = uuid.NewString()
	if input.Priority == 0 {
		input.Priority = 1
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO emergency_contacts (id, user_id, name, phone, priority)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, input.ID, input.UserID, input.Name, input.Phone, input.Priority)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Contact{}, err
	}
	return input, nil
}

// List returns the user's contacts in call order.
func (s *Service) List(ctx context.Context, userID string) ([]Contact, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, name, phone, priority, created_at
		FROM emergency_contacts WHERE user_id=$1
		ORDER BY priority, created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Priority, &c.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if contacts == nil {
		contacts = []Contact{}
	}
	return contacts, nil
}

func (s *Service) Update(ctx context.Context, id string, patch Contact) (Contact, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return Contact{}, err
	}
	if patch.Name != "" {
		c.Name = patch.Name
	}
	if patch.Phone != "" {
		c.Phone = patch.Phone
	}
	if patch.Priority != 0 {
		c.Priority = patch.Priority
	}

	_, err = s.db.Exec(ctx, `
		UPDATE emergency_contacts
		SET name=$2, phone=$3, priority=$4
		WHERE id=$1
	`, c.ID, c.Name, c.Phone, c.Priority)
	if err != nil {
		return Contact{}, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM emergency_contacts WHERE id=$1`, id)
	return err
}

func (s *Service) get(ctx context.Context, id string) (Contact, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, name, phone, priority, created_at
		FROM emergency_contacts WHERE id=$1
	`, id)
	var c Contact
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Priority, &c.CreatedAt); err != nil {
		return Contact{}, err
	}
	return c, nil
}
