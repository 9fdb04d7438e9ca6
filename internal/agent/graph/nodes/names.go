package nodes

// Graph node names. The caller-facing stream attributes fragments to
// these, so they are part of the public contract of the turn stream.
const (
	NodeInputConverter  = "input_converter"
	NodeRouter          = "router"
	NodeRetrieve        = "retrieve"
	NodeGrade           = "grade"
	NodeRewriteQuestion = "rewrite_question"
	NodeAnswerAssembler = "answer_assembler"
	NodeGenerateAnswer  = "generate_answer"
)
