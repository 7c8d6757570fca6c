package config

type WorkerKeyStruct struct {
	StreakUpdateQueue string
}

var WorkerKey = &WorkerKeyStruct{
	StreakUpdateQueue: "streak_update_queue",
}
