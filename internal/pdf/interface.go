package pdf

type PDFInspector interface {
	Inspect(data []byte) (Info, error)
	Preview(data []byte) ([]byte, error)
}
