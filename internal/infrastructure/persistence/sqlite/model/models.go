package model

// All lists every table in migration order.
func All() []any {
	return []any{
		&User{},
		&Property{},
		&Quote{},
		&PropertyInspection{},
		&Notification{},
		&PropertyHistory{},
		&ValuationJob{},
		&KVEntry{},
	}
}
