package topics

const (
	// Previsões simuladas aceitas pelo backend-simulator
	PredictionSimulated = "prediction_simulated"
)
