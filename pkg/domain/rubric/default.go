package rubric

// Default returns the built-in rubric used when no workspace rubric exists.
func Default() *Rubric {
	return &Rubric{
		Version: "1.0",
		Dimensions: []Dimension{
			{
				ID:                  GitForensicAnalysis,
				Name:                "Git Forensic Analysis",
				TargetArtifact:      ArtifactRepo,
				ForensicInstruction: "Inspect the commit history for iterative development from environment setup to tools to orchestration.",
				SuccessPattern:      "More than 3 commits showing a clear progression with meaningful messages.",
				FailurePattern:      "A single bulk upload or a handful of commits with no narrative.",
			},
			{
				ID:                  StateManagementRigor,
				Name:                "State Management Rigor",
				TargetArtifact:      ArtifactRepo,
				ForensicInstruction: "Locate the shared state definition and check for typed models and merge-safe reducers.",
				SuccessPattern:      "Typed state with explicit merge semantics for evidence and opinions.",
				FailurePattern:      "Untyped dictionaries with last-write-wins updates from parallel workers.",
			},
			{
				ID:                  GraphOrchestration,
				Name:                "Graph Orchestration Architecture",
				TargetArtifact:      ArtifactRepo,
				ForensicInstruction: "Verify that detectives and judges fan out in parallel and fan back in through aggregation nodes.",
				SuccessPattern:      "Two distinct fan-out/fan-in patterns with conditional routing on failure.",
				FailurePattern:      "A purely linear pipeline.",
			},
			{
				ID:                  SafeToolEngineering,
				Name:                "Safe Tool Engineering",
				TargetArtifact:      ArtifactRepo,
				ForensicInstruction: "Check that repository cloning happens in a sandboxed temporary directory using argument-list process execution.",
				SuccessPattern:      "Temporary directories, checked subprocess calls and no shell string execution.",
				FailurePattern:      "Raw shell execution of user-supplied input.",
			},
			{
				ID:                  StructuredOutputEnforcement,
				Name:                "Structured Output Enforcement",
				TargetArtifact:      ArtifactRepo,
				ForensicInstruction: "Verify that judge output is bound to a schema and validated with retries.",
				SuccessPattern:      "Schema-bound judge output with retry on malformed responses.",
				FailurePattern:      "Free-text judge output parsed with string matching.",
			},
			{
				ID:                  TheoreticalDepth,
				Name:                "Theoretical Depth (Documentation)",
				TargetArtifact:      ArtifactDocument,
				ForensicInstruction: "Search the report for Dialectical Synthesis, Fan-In, Fan-Out, Metacognition and State Synchronization in substantive explanations.",
				SuccessPattern:      "Terms are tied to concrete implementation details.",
				FailurePattern:      "Terms appear only as buzzwords.",
			},
			{
				ID:                  ReportAccuracy,
				Name:                "Report Accuracy (Cross-Reference)",
				TargetArtifact:      ArtifactDocument,
				ForensicInstruction: "Cross-reference every file path cited in the report against the repository.",
				SuccessPattern:      "All cited paths exist.",
				FailurePattern:      "The report cites files that do not exist.",
			},
			{
				ID:                  SwarmVisual,
				Name:                "Architectural Diagram Analysis",
				TargetArtifact:      ArtifactImages,
				ForensicInstruction: "Classify the architecture diagram and check it shows parallel branches merging back.",
				SuccessPattern:      "Diagram shows both fan-out/fan-in patterns.",
				FailurePattern:      "Diagram shows a linear flow or is missing.",
			},
		},
		SynthesisRules: map[string]string{
			"security_override":      "Confirmed security flaws cap the score at 3.",
			"fact_supremacy":         "Forensic facts overrule optimistic claims.",
			"functionality_weight":   "The Tech Lead carries the most weight for architecture.",
			"dissent_requirement":    "Variance above 2 requires a written dissent.",
			"variance_re_evaluation": "High variance falls back to the median score.",
		},
	}
}
