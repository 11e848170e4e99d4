// internal/game/catalog.go
package game

import "github.com/jason-s-yu/loteria/internal/models"

// catalog is the traditional 54-card loteria deck in canonical order.
var catalog = [models.DeckSize]models.Card{
	{ID: 1, Name: "El Gallo", ArtworkRef: "cards/01-el-gallo.png"},
	{ID: 2, Name: "El Diablito", ArtworkRef: "cards/02-el-diablito.png"},
	{ID: 3, Name: "La Dama", ArtworkRef: "cards/03-la-dama.png"},
	{ID: 4, Name: "El Catrín", ArtworkRef: "cards/04-el-catrin.png"},
	{ID: 5, Name: "El Paraguas", ArtworkRef: "cards/05-el-paraguas.png"},
	{ID: 6, Name: "La Sirena", ArtworkRef: "cards/06-la-sirena.png"},
	{ID: 7, Name: "La Escalera", ArtworkRef: "cards/07-la-escalera.png"},
	{ID: 8, Name: "La Botella", ArtworkRef: "cards/08-la-botella.png"},
	{ID: 9, Name: "El Barril", ArtworkRef: "cards/09-el-barril.png"},
	{ID: 10, Name: "El Árbol", ArtworkRef: "cards/10-el-arbol.png"},
	{ID: 11, Name: "El Melón", ArtworkRef: "cards/11-el-melon.png"},
	{ID: 12, Name: "El Valiente", ArtworkRef: "cards/12-el-valiente.png"},
	{ID: 13, Name: "El Gorrito", ArtworkRef: "cards/13-el-gorrito.png"},
	{ID: 14, Name: "La Muerte", ArtworkRef: "cards/14-la-muerte.png"},
	{ID: 15, Name: "La Pera", ArtworkRef: "cards/15-la-pera.png"},
	{ID: 16, Name: "La Bandera", ArtworkRef: "cards/16-la-bandera.png"},
	{ID: 17, Name: "El Bandolón", ArtworkRef: "cards/17-el-bandolon.png"},
	{ID: 18, Name: "El Violoncello", ArtworkRef: "cards/18-el-violoncello.png"},
	{ID: 19, Name: "La Garza", ArtworkRef: "cards/19-la-garza.png"},
	{ID: 20, Name: "El Pájaro", ArtworkRef: "cards/20-el-pajaro.png"},
	{ID: 21, Name: "La Mano", ArtworkRef: "cards/21-la-mano.png"},
	{ID: 22, Name: "La Bota", ArtworkRef: "cards/22-la-bota.png"},
	{ID: 23, Name: "La Luna", ArtworkRef: "cards/23-la-luna.png"},
	{ID: 24, Name: "El Cotorro", ArtworkRef: "cards/24-el-cotorro.png"},
	{ID: 25, Name: "El Borracho", ArtworkRef: "cards/25-el-borracho.png"},
	{ID: 26, Name: "El Negrito", ArtworkRef: "cards/26-el-negrito.png"},
	{ID: 27, Name: "El Corazón", ArtworkRef: "cards/27-el-corazon.png"},
	{ID: 28, Name: "La Sandía", ArtworkRef: "cards/28-la-sandia.png"},
	{ID: 29, Name: "El Tambor", ArtworkRef: "cards/29-el-tambor.png"},
	{ID: 30, Name: "El Camarón", ArtworkRef: "cards/30-el-camaron.png"},
	{ID: 31, Name: "Las Jaras", ArtworkRef: "cards/31-las-jaras.png"},
	{ID: 32, Name: "El Músico", ArtworkRef: "cards/32-el-musico.png"},
	{ID: 33, Name: "La Araña", ArtworkRef: "cards/33-la-arana.png"},
	{ID: 34, Name: "El Soldado", ArtworkRef: "cards/34-el-soldado.png"},
	{ID: 35, Name: "La Estrella", ArtworkRef: "cards/35-la-estrella.png"},
	{ID: 36, Name: "El Cazo", ArtworkRef: "cards/36-el-cazo.png"},
	{ID: 37, Name: "El Mundo", ArtworkRef: "cards/37-el-mundo.png"},
	{ID: 38, Name: "El Apache", ArtworkRef: "cards/38-el-apache.png"},
	{ID: 39, Name: "El Nopal", ArtworkRef: "cards/39-el-nopal.png"},
	{ID: 40, Name: "El Alacrán", ArtworkRef: "cards/40-el-alacran.png"},
	{ID: 41, Name: "La Rosa", ArtworkRef: "cards/41-la-rosa.png"},
	{ID: 42, Name: "La Calavera", ArtworkRef: "cards/42-la-calavera.png"},
	{ID: 43, Name: "La Campana", ArtworkRef: "cards/43-la-campana.png"},
	{ID: 44, Name: "El Cantarito", ArtworkRef: "cards/44-el-cantarito.png"},
	{ID: 45, Name: "El Venado", ArtworkRef: "cards/45-el-venado.png"},
	{ID: 46, Name: "El Sol", ArtworkRef: "cards/46-el-sol.png"},
	{ID: 47, Name: "La Corona", ArtworkRef: "cards/47-la-corona.png"},
	{ID: 48, Name: "La Chalupa", ArtworkRef: "cards/48-la-chalupa.png"},
	{ID: 49, Name: "El Pino", ArtworkRef: "cards/49-el-pino.png"},
	{ID: 50, Name: "El Pescado", ArtworkRef: "cards/50-el-pescado.png"},
	{ID: 51, Name: "La Palma", ArtworkRef: "cards/51-la-palma.png"},
	{ID: 52, Name: "La Maceta", ArtworkRef: "cards/52-la-maceta.png"},
	{ID: 53, Name: "El Arpa", ArtworkRef: "cards/53-el-arpa.png"},
	{ID: 54, Name: "La Rana", ArtworkRef: "cards/54-la-rana.png"},
}

// Catalog returns a copy of the full card catalog in canonical order.
func Catalog() []models.Card {
	out := make([]models.Card, len(catalog))
	copy(out, catalog[:])
	return out
}

// CardByID looks up a catalog card.
func CardByID(id int) (models.Card, bool) {
	if id < 1 || id > len(catalog) {
		return models.Card{}, false
	}
	return catalog[id-1], true
}
