package domain

// Models lists every table in migration order
func Models() []any {
	return []any{
		&User{},
		&Credential{},
		&Token{},
		&Startup{},
		&Transaction{},
		&Issuance{},
		&WalletKey{},
	}
}
