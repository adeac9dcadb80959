package index

// ZettelIndex defines the interface for zettel indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ZettelIndex interface {
	UpsertZettel(z ZettelRow, body string, links []string) error
	DeleteZettel(path string) error
	GetChecksum(path string) (string, error)
	GetZettel(path string) (*ZettelRow, error)
	ListZettels(limit, offset int, attr, sort string) ([]ZettelRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Backlinks(target string) ([]string, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies ZettelIndex at compile time.
var _ ZettelIndex = (*DB)(nil)
