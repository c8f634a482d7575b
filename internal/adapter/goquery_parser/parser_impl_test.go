package goquery_parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/profile-scraper/internal/repository"
)

const listingPage = `<html><body>
<div class="results">
  <calendar-availability-app result-id="101" result-name=" Dra. Ana Souza " url="https://www.example.com/ana-souza/cardiologista/sao-paulo"></calendar-availability-app>
  <calendar-availability-app result-id="102" result-name="Dr. Bruno Lima" url="/bruno-lima/dermatologista/sao-paulo"></calendar-availability-app>
  <calendar-availability-app result-id="103" result-name="Sem URL"></calendar-availability-app>
  <calendar-availability-app result-id="104" url="/sem-nome/clinico/sao-paulo"></calendar-availability-app>
</div>
<aside data-test-id="listing-pagination">
  <ul>
    <li><a class="page-link" href="?page=1">1</a></li>
    <li><a class="page-link" href="?page=2">2</a></li>
    <li><a class="page-link" href="?page=3">3</a></li>
    <li><a class="page-link" href="?page=12">12</a></li>
    <li><a class="page-link" href="?page=2">Próxima</a></li>
  </ul>
</aside>
</body></html>`

func TestParseListing(t *testing.T) {
	p := NewDirectoryParser()

	summaries, last, err := p.ParseListing(listingPage, "https://www.example.com/pesquisa?q=&page=1")
	require.NoError(t, err)

	assert.Equal(t, 12, last)
	require.Len(t, summaries, 3)
	assert.Equal(t, "Dra. Ana Souza", summaries[0].Name)
	assert.Equal(t, "https://www.example.com/ana-souza/cardiologista/sao-paulo", summaries[0].ProfileURL)
	assert.Equal(t, "https://www.example.com/bruno-lima/dermatologista/sao-paulo", summaries[1].ProfileURL)
	assert.Equal(t, "N/A", summaries[2].Name)
}

func TestParseListing_NoPagination(t *testing.T) {
	html := `<html><body><calendar-availability-app result-name="Dr. X" url="/x"></calendar-availability-app></body></html>`

	summaries, last, err := NewDirectoryParser().ParseListing(html, "https://www.example.com/pesquisa")
	require.NoError(t, err)
	assert.Equal(t, 0, last)
	assert.Len(t, summaries, 1)
}

func TestParseListing_MalformedPagination(t *testing.T) {
	html := `<html><body><aside data-test-id="listing-pagination"><a class="page-link">next</a><a class="page-link">…</a></aside></body></html>`

	summaries, last, err := NewDirectoryParser().ParseListing(html, "https://www.example.com/pesquisa")
	require.NoError(t, err)
	assert.Equal(t, 0, last)
	assert.Empty(t, summaries)
}

const profilePage = `<html><head>
<script>var tracking = "11 99999-0000";</script>
</head><body>
<h1><span itemprop="name">Dra. Ana Souza</span></h1>
<span data-test-id="doctor-specializations"><a href="/cardiologista">Cardiologista</a>, <a href="/clinico">Clínico geral</a></span>
<div class="phones">
  <span>(11) 3456-7890</span>
  <span>11 98765-4321</span>
  <span>(11) 3456-7890</span>
</div>
<div class="address">
  <span itemprop="streetAddress">
    Av. Paulista, 1000
    <span>Sala 12</span>
  </span>
  <span itemprop="streetAddress">Rua Augusta, 500</span>
</div>
</body></html>`

func TestParseProfile(t *testing.T) {
	fields, err := NewDirectoryParser().ParseProfile(profilePage)
	require.NoError(t, err)

	assert.Equal(t, "Dra. Ana Souza", fields.Name)
	require.NotNil(t, fields.Specialty)
	assert.Equal(t, "Cardiologista", *fields.Specialty)
	assert.Equal(t, []string{"(11) 3456-7890", "11 98765-4321"}, fields.PhoneNumbers)
	assert.Equal(t, []string{"Av. Paulista, 1000 Sala 12", "Rua Augusta, 500"}, fields.Addresses)
}

func TestParseProfile_MissingSections(t *testing.T) {
	fields, err := NewDirectoryParser().ParseProfile(`<html><body><h1>Dr. Carlos</h1></body></html>`)
	require.NoError(t, err)

	assert.Equal(t, "Dr. Carlos", fields.Name)
	assert.Nil(t, fields.Specialty)
	assert.NotNil(t, fields.Addresses)
	assert.Empty(t, fields.Addresses)
	assert.NotNil(t, fields.PhoneNumbers)
	assert.Empty(t, fields.PhoneNumbers)
}

func TestParseProfile_NotAProfile(t *testing.T) {
	_, err := NewDirectoryParser().ParseProfile(`<html><body><p>Página não encontrada</p></body></html>`)
	assert.ErrorIs(t, err, repository.ErrParse)
}
