package deliverydispatch

type Input struct {
	Limit int `json:"limit"`
}

type Output struct {
	Claimed   int `json:"claimed"`
	Delivered int `json:"delivered"`
	Retrying  int `json:"retrying"`
	Failed    int `json:"failed"`
}
