package core

import "testing"

func TestRow_Lookup(t *testing.T) {
	quantity := []string{"quantity", "quantite", "quantité", "stock", "qty"}

	tests := []struct {
		name    string
		row     Row
		aliases []string
		want    any
		wantOK  bool
	}{
		{
			name:    "exact key",
			row:     RowOf("prix", "100"),
			aliases: []string{"price", "prix"},
			want:    "100",
			wantOK:  true,
		},
		{
			name:    "case and accents ignored",
			row:     RowOf("CATÉGORIE", "Audio"),
			aliases: []string{"categorie"},
			want:    "Audio",
			wantOK:  true,
		},
		{
			name:    "header contains alias",
			row:     RowOf("Quantité en stock", "7"),
			aliases: quantity,
			want:    "7",
			wantOK:  true,
		},
		{
			name:    "alias contains header",
			row:     RowOf("qt", "3"),
			aliases: []string{"qty"},
			want:    "3",
			wantOK:  true,
		},
		{
			name:    "short header inside alias",
			row:     RowOf("ean", "600"),
			aliases: []string{"code_ean13"},
			want:    "600",
			wantOK:  true,
		},
		{
			name:    "blank match falls through to next alias",
			row:     RowOf("name", " ", "nom", "Clavier"),
			aliases: []string{"name", "nom"},
			want:    "Clavier",
			wantOK:  true,
		},
		{
			name:    "earlier alias wins over later exact match",
			row:     RowOf("stock", "9", "quantity", "4"),
			aliases: quantity,
			want:    "4",
			wantOK:  true,
		},
		{
			name:    "later exact match beats earlier fuzzy match",
			row:     RowOf("purchase_price", "100", "prix", "150"),
			aliases: []string{"price", "prix", "unit_price", "prix_unitaire"},
			want:    "150",
			wantOK:  true,
		},
		{
			name:    "later folded match beats earlier fuzzy match",
			row:     RowOf("stock_magasin", "1", "QUANTITÉ", "5"),
			aliases: []string{"stock", "quantite"},
			want:    "5",
			wantOK:  true,
		},
		{
			name:    "fuzzy candidates resolved in file order",
			row:     RowOf("stock_magasin", "1", "stock_depot", "2"),
			aliases: []string{"stock"},
			want:    "1",
			wantOK:  true,
		},
		{
			name:    "absent",
			row:     RowOf("couleur", "rouge"),
			aliases: []string{"brand", "marque"},
			want:    nil,
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.row.Lookup(tt.aliases...)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Lookup(%v) = %v, %v; want %v, %v", tt.aliases, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRow_TypedHelpers(t *testing.T) {
	row := RowOf("Quantité en stock", "7", "Prix", "12 500 FCFA", "Marque", "  ")

	if got := row.Int("quantity", "quantite", "quantité", "stock", "qty"); got != 7 {
		t.Errorf("Int = %d, want 7", got)
	}
	if got := row.Price("price", "prix").StringFixed(2); got != "12500.00" {
		t.Errorf("Price = %s, want 12500.00", got)
	}
	if got := row.Text("brand", "marque"); got.Valid {
		t.Errorf("Text for blank column = %+v, want no value", got)
	}
}

func TestRow_SetKeepsOrder(t *testing.T) {
	var r Row
	r.Set("b", 1)
	r.Set("a", 2)
	r.Set("b", 3)

	keys := r.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("Keys = %v, want [b a]", keys)
	}
	if v, _ := r.Get("b"); v != 3 {
		t.Errorf("Get(b) = %v, want 3", v)
	}
}

func TestFoldKey(t *testing.T) {
	tests := map[string]string{
		"Quantité":         "quantite",
		" NUMÉRO_SÉRIE ":   "numero_serie",
		"Catégorie":        "categorie",
		"plain":            "plain",
		"Téléphone mobile": "telephone mobile",
	}
	for in, want := range tests {
		if got := foldKey(in); got != want {
			t.Errorf("foldKey(%q) = %q, want %q", in, got, want)
		}
	}
}
