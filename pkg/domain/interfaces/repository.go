package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Message() MessageRepository
	Memory() MemoryRepository
	GroupMemory() GroupMemoryRepository
	Chat() ChatRepository
	User() UserRepository

	Close() error
}
