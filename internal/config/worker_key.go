package config

type WorkerKeyStruct struct {
	PersistResultsQueue    string
	PersistTasksQueue      string
	PersistWeaknessesQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistResultsQueue:    "persist_results_queue",
	PersistTasksQueue:      "persist_tasks_queue",
	PersistWeaknessesQueue: "persist_weaknesses_queue",
}
