// Package seed provides helpers to create demo data for development and
// manual testing. Records are written through the repository layer, so the
// same factories fill SQL and MongoDB stores.
package seed

import (
	"fmt"
	"strings"
	"time"

	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Post kinds produced by the factory.
const (
	KindText     = "text"
	KindGallery  = "gallery"
	KindLinked   = "linked"
	KindDocument = "document"
)

// Distribution weights the post kinds. Weights need not add up to anything in particular.
type Distribution struct {
	Text     int
	Gallery  int
	Linked   int
	Document int
}

var defaultDistribution = Distribution{Text: 5, Gallery: 3, Linked: 1, Document: 1}

// Factory builds domain entities populated with fake content.
type Factory struct {
	faker   *gofakeit.Faker
	maxDays int
}

// NewFactory creates a Factory. A zero seed picks a random one; maxDays bounds
// how far back post timestamps are spread.
func NewFactory(seed int64, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{faker: gofakeit.New(seed), maxDays: maxDays}
}

// BuildUser returns an active user with a unique-looking username. Password is left to the caller.
func (f *Factory) BuildUser() *models.User {
	first := sanitizeUsername(f.faker.FirstName())
	if first == "" {
		first = "writer"
	}
	username := fmt.Sprintf("%s_%d", first, f.faker.Number(100, 99999))
	if len(username) > 30 {
		username = username[:30]
	}
	return &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@%s", username, f.faker.DomainName()),
		Bio:      f.faker.Sentence(10),
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		IsActive: true,
	}
}

// BuildPost constructs a post of the given kind for author without persisting it.
func (f *Factory) BuildPost(author *models.User, kind string) *models.Post {
	post := &models.Post{
		Title:       strings.TrimSuffix(f.faker.Sentence(5), "."),
		Content:     f.faker.Paragraph(2, 4, 12, "\n\n"),
		AuthorID:    author.ID,
		Tags:        f.tags(),
		IsPublished: f.faker.Number(1, 10) > 2,
	}

	// realistic created_at spread
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	post.CreatedAt = time.Now().UTC().Add(-back)
	post.UpdatedAt = post.CreatedAt

	switch kind {
	case KindGallery:
		for i := 0; i < f.faker.Number(1, 3); i++ {
			post.Images = append(post.Images, fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID()))
		}
	case KindLinked:
		for i := 0; i < f.faker.Number(1, 3); i++ {
			post.Links = append(post.Links, models.Link{
				Title:       strings.TrimSuffix(f.faker.Sentence(3), "."),
				URL:         f.faker.URL(),
				Description: f.faker.Sentence(8),
			})
		}
	case KindDocument:
		name := strings.ToLower(f.faker.Word()) + ".pdf"
		post.Documents = append(post.Documents, models.Document{
			Filename:     fmt.Sprintf("%d_%s", post.CreatedAt.UnixMilli(), name),
			OriginalName: name,
			Mimetype:     "application/pdf",
			Size:         int64(f.faker.Number(10_000, 2_000_000)),
			URL:          fmt.Sprintf("https://files.example.com/blog-documents/%s", f.faker.UUID()),
			UploadedAt:   post.CreatedAt,
		})
	}
	return post
}

// BuildComment returns a comment by author; the post id is set when it is stored.
func (f *Factory) BuildComment(author *models.User) *models.Comment {
	return &models.Comment{
		AuthorID: author.ID,
		Content:  f.faker.Sentence(f.faker.Number(4, 16)),
	}
}

// Pick returns a pseudo-random index in [0, n).
func (f *Factory) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}

func (f *Factory) tags() []string {
	n := f.faker.Number(0, 4)
	tags := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tags = append(tags, strings.ToLower(f.faker.HipsterWord()))
	}
	return tags
}

// computeCounts splits total across the post kinds proportionally to d.
// Rounding leftovers go to text posts.
func computeCounts(total int, d Distribution) (text, gallery, linked, document int) {
	weight := d.Text + d.Gallery + d.Linked + d.Document
	if total <= 0 || weight <= 0 {
		return total, 0, 0, 0
	}
	gallery = total * d.Gallery / weight
	linked = total * d.Linked / weight
	document = total * d.Document / weight
	text = total - gallery - linked - document
	return text, gallery, linked, document
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
