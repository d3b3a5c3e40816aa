package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/arklim/daily-tracker/internal/core/domain"
)

type identityDocument struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	FirstName      string        `bson:"first_name"`
	LastName       string        `bson:"last_name"`
	Email          string        `bson:"email"`
	Mobile         string        `bson:"mobile"`
	City           string        `bson:"city"`
	DOB            string        `bson:"dob"`
	HashedPassword string        `bson:"hashed_password"`
	CreatedAt      time.Time     `bson:"created_at"`
	Disabled       bool          `bson:"disabled"`
	CurrentXP      int           `bson:"currentXp"`
	MaxXP          int           `bson:"maxXp"`
	Level          int           `bson:"level"`
}

func newIdentityDocument(i domain.Identity) identityDocument {
	doc := identityDocument{
		FirstName:      i.FirstName,
		LastName:       i.LastName,
		Email:          i.Email,
		Mobile:         i.Mobile,
		City:           i.City,
		DOB:            i.DOB,
		HashedPassword: i.PasswordHash,
		CreatedAt:      i.CreatedAt,
		Disabled:       i.Disabled,
		CurrentXP:      i.CurrentXP,
		MaxXP:          i.MaxXP,
		Level:          i.Level,
	}
	if oid, ok := parseObjectID(i.ID); ok {
		doc.ID = oid
	}
	return doc
}

// toDomain fills in progress defaults for records written before gamification existed.
func (d identityDocument) toDomain() domain.Identity {
	progress := domain.Progress{CurrentXP: d.CurrentXP, MaxXP: d.MaxXP, Level: d.Level}.Normalize()
	return domain.Identity{
		ID:           d.ID.Hex(),
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		Mobile:       d.Mobile,
		City:         d.City,
		DOB:          d.DOB,
		PasswordHash: d.HashedPassword,
		CreatedAt:    d.CreatedAt,
		Disabled:     d.Disabled,
		CurrentXP:    progress.CurrentXP,
		MaxXP:        progress.MaxXP,
		Level:        progress.Level,
	}
}

type habitDocument struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	UserID      bson.ObjectID `bson:"userId"`
	Title       string        `bson:"title"`
	IsCompleted bool          `bson:"isCompleted"`
	Color       string        `bson:"color"`
	Icon        string        `bson:"icon"`
}

func newHabitDocument(owner bson.ObjectID, h domain.Habit) habitDocument {
	doc := habitDocument{
		UserID:      owner,
		Title:       h.Title,
		IsCompleted: h.IsCompleted,
		Color:       h.Color,
		Icon:        h.Icon,
	}
	if oid, ok := parseObjectID(h.ID); ok {
		doc.ID = oid
	}
	return doc
}

func (d habitDocument) toDomain() domain.Habit {
	return domain.Habit{
		ID:          d.ID.Hex(),
		UserID:      d.UserID.Hex(),
		Title:       d.Title,
		IsCompleted: d.IsCompleted,
		Color:       d.Color,
		Icon:        d.Icon,
	}
}

type logDocument struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	UserID   bson.ObjectID `bson:"userId"`
	Date     string        `bson:"date"`
	Steps    int           `bson:"steps"`
	WaterMl  int           `bson:"waterMl"`
	ProteinG int           `bson:"proteinG"`
}

func (d logDocument) toDomain() domain.DailyLog {
	return domain.DailyLog{
		ID:       d.ID.Hex(),
		UserID:   d.UserID.Hex(),
		Date:     d.Date,
		Steps:    d.Steps,
		WaterMl:  d.WaterMl,
		ProteinG: d.ProteinG,
	}
}

// ownerID converts an identity id into the ObjectID stored in userId fields.
// Identities in this store always carry ObjectID ids, so anything else owns nothing.
func ownerID(userID string) (bson.ObjectID, bool) {
	return parseObjectID(userID)
}

func userDateFilter(owner bson.ObjectID, date string) bson.D {
	return bson.D{{Key: "userId", Value: owner}, {Key: "date", Value: date}}
}

func logRangeFilter(owner bson.ObjectID, start, end string) bson.D {
	return bson.D{
		{Key: "userId", Value: owner},
		{Key: "date", Value: bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}},
	}
}

// logReplacement sets every metric so an upsert never merges with a previous write.
func logReplacement(owner bson.ObjectID, entry domain.LogEntry) bson.D {
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "userId", Value: owner},
		{Key: "date", Value: entry.Date},
		{Key: "steps", Value: entry.Steps},
		{Key: "waterMl", Value: entry.WaterMl},
		{Key: "proteinG", Value: entry.ProteinG},
	}}}
}

// progressFilter matches an identity whose counters still equal expected. Legacy
// documents lack the counters and read back as the defaults, so a default value
// also matches a missing or zero field.
func progressFilter(id bson.ObjectID, expected domain.Progress) bson.D {
	match := func(field string, value, fallback int) bson.E {
		if value == fallback {
			return bson.E{Key: field, Value: bson.D{{Key: "$in", Value: bson.A{value, 0, nil}}}}
		}
		return bson.E{Key: field, Value: value}
	}
	return bson.D{
		{Key: "_id", Value: id},
		match("currentXp", expected.CurrentXP, domain.DefaultCurrentXP),
		match("maxXp", expected.MaxXP, domain.DefaultMaxXP),
		match("level", expected.Level, domain.DefaultLevel),
	}
}

func progressUpdate(p domain.Progress) bson.D {
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "currentXp", Value: p.CurrentXP},
		{Key: "maxXp", Value: p.MaxXP},
		{Key: "level", Value: p.Level},
	}}}
}
