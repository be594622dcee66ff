// Package xaibench trains tabular machine-learning models and explains them.
//
// A session loads a dataset, selects a target column and trains one or more
// model slots. Each slot wraps a pipeline of preprocessing (median imputation
// and scaling of numeric features, most-frequent imputation and one-hot
// encoding of categorical ones) followed by an estimator. Trained models are
// explained globally through their coefficients or feature importances and
// locally through LIME.
//
// # Quick Start
//
//	ctx := context.Background()
//	s := workbench.NewSession()
//	if _, err := s.GetDataset(ctx, "CENSUS"); err != nil {
//	    log.Fatal(err)
//	}
//	if _, _, _, err := s.SplitFeatureTarget("income"); err != nil {
//	    log.Fatal(err)
//	}
//	slots, _, err := s.FillEmptyModels(1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	slots[0].SelectedAlgorithm = pipeline.RandomForest
//	if _, err := s.FillModel(ctx, slots[0]); err != nil {
//	    log.Fatal(err)
//	}
//	exp, err := s.ExplainInstance(slots[0], 3)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(exp)
//
// # Packages
//
//   - frame: typed tabular data and CSV parsing
//   - dataset: built-in and URL datasets with a download cache
//   - preprocessing: imputers, scaler, one-hot encoder, column transformer
//   - sklearn/...: linear models, decision trees, forests, boosting, SVM
//   - pipeline: algorithm selection and the preprocessing+estimator pipeline
//   - split: IMBALANCED and BALANCED train/test splits
//   - train: problem-type detection, fitting and evaluation
//   - explain: global weights, LIME explanations and charts
//   - workbench: the session state driven by the CLI and the terminal UI
//   - metrics: classification and regression metrics
//
// The xaibench command (cmd/xaibench) exposes the same workflow on the command
// line and as an interactive terminal UI.
package xaibench
