package history

type WorkflowTaskStartedAttributes struct {
}
