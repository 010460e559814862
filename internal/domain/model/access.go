package model

// Permissions mirrors the permission flags GitHub reports for the
// authenticated user on a repository.
type Permissions struct {
	Admin bool `yaml:"admin" json:"admin"`
	Push  bool `yaml:"push" json:"push"`
	Pull  bool `yaml:"pull" json:"pull"`
}

// RepositoryAccess describes one repository reachable by the authenticated token.
type RepositoryAccess struct {
	ID          int64       `yaml:"id" json:"id"`
	Owner       string      `yaml:"-" json:"-"`
	Name        string      `yaml:"-" json:"-"`
	Visibility  string      `yaml:"visibility" json:"visibility"`
	Permissions Permissions `yaml:"permissions" json:"permissions"`
}

// AccessSnapshot groups accessible repositories by owner login, then by
// repository name.
type AccessSnapshot map[string]map[string]RepositoryAccess

// GroupByOwner builds an AccessSnapshot. Entries without an owner or name are skipped.
func GroupByOwner(repos []RepositoryAccess) AccessSnapshot {
	snap := make(AccessSnapshot)
	for _, r := range repos {
		if r.Owner == "" || r.Name == "" {
			continue
		}
		bucket, ok := snap[r.Owner]
		if !ok {
			bucket = make(map[string]RepositoryAccess)
			snap[r.Owner] = bucket
		}
		bucket[r.Name] = r
	}
	return snap
}

// Count returns the total number of repositories across all owners.
func (s AccessSnapshot) Count() int {
	n := 0
	for _, repos := range s {
		n += len(repos)
	}
	return n
}
