package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./stories.db"
)

type WorkflowMode string

const (
	WorkflowModeSimple   WorkflowMode = "SIMPLE"
	WorkflowModeStandard WorkflowMode = "STANDARD"
)

func (m WorkflowMode) IsValid() bool {
	return m == WorkflowModeSimple || m == WorkflowModeStandard
}

type SelectionMethod string

const (
	SelectionRandom     SelectionMethod = "RANDOM"
	SelectionMostViewed SelectionMethod = "MOST_VIEWED"
	SelectionNewest     SelectionMethod = "NEWEST"
)

func (s SelectionMethod) IsValid() bool {
	switch s {
	case SelectionRandom, SelectionMostViewed, SelectionNewest:
		return true
	}
	return false
}
