package common

// Training defaults
const DEFAULT_NUM_CLASSES = 10
const DEFAULT_BATCH_SIZE = 64
const DEFAULT_EPOCHS = 1
const DEFAULT_LEARNING_RATE = 0.05

// Coordinator defaults
const DEFAULT_ROUNDS = 10
const DEFAULT_PARTICIPANTS_RATIO = 1.0
const DEFAULT_MIN_PARTICIPANTS = 1

// Convergence detection
const CONVERGENCE_THRESHOLD = 0.005
const CONVERGENCE_PATIENCE = 5
const CONVERGENCE_WINDOW_SIZE = 3

// Server
const SERVER_PORT = 8080

// Events
const ROUND_FINISHED_EVENT_TYPE = "RoundFinished"
const TRAINING_FINISHED_EVENT_TYPE = "TrainingFinished"

// Training exit reasons
const EXIT_ROUNDS_COMPLETED = "all rounds completed"
const EXIT_TARGET_ACCURACY = "target accuracy reached"
const EXIT_CONVERGED = "accuracy converged"
