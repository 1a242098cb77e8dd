package postgres

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	PendingUsers *PendingUserRepository
	Users        *UserRepository
	Permissions  *PermissionRepository
	Profiles     *ProfileRepository
}

// NewRepositories wires all repositories backed by the provided pool or transaction.
func NewRepositories(exec pgExecutor) *Repositories {
	return &Repositories{
		PendingUsers: NewPendingUserRepository(exec),
		Users:        NewUserRepository(exec),
		Permissions:  NewPermissionRepository(exec),
		Profiles:     NewProfileRepository(exec),
	}
}
