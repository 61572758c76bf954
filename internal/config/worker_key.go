package config

// WorkerKeyStruct names the Redis lists drained by background workers.
type WorkerKeyStruct struct {
	PersistChatQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistChatQueue: "chat_persist_queue",
}
