package store

import "example.com/project"

// Memory keeps users in a map.
type Memory struct {
	users map[int]*project.User
}

// FindByID returns the user with id.
func (m *Memory) FindByID(id int) (*project.User, error) {
	return m.users[id], nil
}

// Save stores user.
func (m *Memory) Save(user *project.User) error {
	m.users[user.ID] = user
	return nil
}
