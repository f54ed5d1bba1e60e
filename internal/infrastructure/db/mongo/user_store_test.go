package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/99minutos/user-service/internal/core/domain"
)

func TestUserDoc_RoundTripsThroughBSON(t *testing.T) {
	in := &domain.User{
		ID:        42,
		Email:     "ana@example.com",
		Password:  "$2a$04$hash",
		FirstName: "Ana",
		LastName:  "Diaz",
		Roles:     []domain.Role{{ID: 1, Name: domain.RoleAdministrator}, {ID: 2, Name: domain.RoleGuest}},
	}

	raw, err := bson.Marshal(toUserDoc(in))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if id, ok := bson.Raw(raw).Lookup("_id").Int64OK(); !ok || id != 42 {
		t.Fatalf("expected int64 _id 42, got %v", bson.Raw(raw).Lookup("_id"))
	}

	var doc userDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out := doc.toDomain()
	if out.ID != in.ID || out.Email != in.Email || out.Password != in.Password {
		t.Fatalf("identity fields lost: %+v", out)
	}
	if out.FirstName != "Ana" || out.LastName != "Diaz" {
		t.Fatalf("names lost: %+v", out)
	}
	if len(out.Roles) != 2 || out.Roles[0] != in.Roles[0] || out.Roles[1] != in.Roles[1] {
		t.Fatalf("roles lost: %+v", out.Roles)
	}
}

func TestUserDoc_NilRolesDecodeEmpty(t *testing.T) {
	out := userDoc{ID: 1, Email: "a@b.c"}.toDomain()
	if out.Roles == nil || len(out.Roles) != 0 {
		t.Fatalf("expected empty non-nil roles, got %#v", out.Roles)
	}
}
