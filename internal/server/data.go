package server

import (
	"encoding/json"
	"io"
)

func toJSON(i interface{}, w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(i)
}

func fromJSON(i interface{}, r io.Reader) error {
	d := json.NewDecoder(r)
	return d.Decode(i)
}

type StartRunRequest struct {
	NumParticipants   int            `json:"numParticipants"`
	Rounds            int32          `json:"rounds"`
	Epochs            int32          `json:"epochs"`
	TrainingParams    TrainingParams `json:"trainingParams"`
	ParticipantsRatio float64        `json:"participantsRatio"`
	MinParticipants   int32          `json:"minParticipants"`
	TargetAccuracy    float32        `json:"targetAccuracy"`
	DatasetPath       string         `json:"datasetPath"`
	Examples          int            `json:"examples"`
	FeatureDim        int            `json:"featureDim"`
	NumClasses        int            `json:"numClasses"`
	Seed              int64          `json:"seed"`
	ResultsDir        string         `json:"resultsDir"`
}

type TrainingParams struct {
	BatchSize    int32   `json:"batchSize"`
	LearningRate float32 `json:"learningRate"`
}
